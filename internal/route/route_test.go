package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	assert.Equal(t, "", r.Last())
	assert.Empty(t, r.Paths())

	r.Navigate(Login)
	r.Navigate(Parties)

	assert.Equal(t, []string{Login, Parties}, r.Paths())
	assert.Equal(t, Parties, r.Last())
}

func TestNavigatorFunc(t *testing.T) {
	var got string
	var n Navigator = NavigatorFunc(func(p string) { got = p })
	n.Navigate(Parties)
	assert.Equal(t, Parties, got)

	assert.NotPanics(t, func() { Discard.Navigate(Login) })
}
