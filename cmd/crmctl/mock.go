package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yashgupta8707/jubilant-system/internal/mockapi"
)

func (a *app) serveMock(ctx context.Context, args []string) error {
	mc := a.cfg.Mock
	fs := a.newFlagSet("serve-mock")
	addr := fs.String("addr", mc.Addr, "Listen address")
	models := fs.Int("models", mc.SeedModels, "Number of catalog items to generate")
	parties := fs.Int("parties", mc.SeedParties, "Number of parties to generate")
	seed := fs.Uint64("seed", 1, "Seed for the generated data")
	requireAuth := fs.Bool("require-auth", mc.RequireAuth, "Reject API calls without a valid token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *models < 0 || *parties < 0 {
		return usageError("-models and -parties cannot be negative")
	}

	store := mockapi.NewStore()
	if err := store.Seed(mockapi.SeedConfig{Models: *models, Parties: *parties, Seed: *seed}); err != nil {
		return fmt.Errorf("seeding mock data: %w", err)
	}
	server := mockapi.New(store, mockapi.Config{
		RequireAuth: *requireAuth,
		JWTSecret:   mc.JWTSecret,
		Username:    mc.Username,
		Password:    mc.Password,
		Logger:      a.logger,
	})

	a.logger.Info("starting mock backend",
		zap.String("addr", *addr),
		zap.Int("models", *models),
		zap.Int("parties", *parties),
		zap.Uint64("seed", *seed),
	)
	fmt.Fprintf(a.errOut, "Mock backend listening on %s (user %s)\n", *addr, mc.Username)
	return server.Run(ctx, *addr)
}
