// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/internal/store/backend"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	file    string
	timeout time.Duration
}

// seedFile is the YAML document read by the seed command.
type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// seedResult counts what a seed run did.
type seedResult struct {
	Created int
	Skipped int
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Register users listed in a YAML file",
		Long: `Registers every user in the file through the same validation and hashing
as the HTTP API. Users whose name already exists are skipped, so the command
can be run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.file, "file", "f", "", "YAML file with a users list (required)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	_ = cmd.MarkFlagRequired("file") //nolint:errcheck // flag is defined above

	return cmd
}

func runSeed(cmd *cobra.Command, seedCfg *seedConfig) error {
	users, err := readSeedFile(seedCfg.file)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := ensureDatabaseDir(cfg.Database.URL); err != nil {
		return err
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), seedCfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	repo, _, err := backend.Open(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer func() { _ = repo.Close() }()

	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Hasher.Argon2Params())
	if err != nil {
		return err
	}
	svc, err := auth.NewAuthService(repo, auth.NewMemoryTokenStore(), hasher)
	if err != nil {
		return err
	}

	result, err := seedUsers(ctx, cmd, svc, users)
	if err != nil {
		return err
	}

	cmd.Printf("Seeding complete: %d created, %d skipped\n", result.Created, result.Skipped)
	return nil
}

func readSeedFile(path string) ([]seedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Code("SEED_FILE_INVALID").With("path", path).Wrapf(err, "read seed file")
	}

	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("SEED_FILE_INVALID").With("path", path).Wrapf(err, "parse seed file")
	}
	if len(doc.Users) == 0 {
		return nil, oops.Code("SEED_FILE_INVALID").With("path", path).Errorf("seed file lists no users")
	}
	return doc.Users, nil
}

type registrar interface {
	Register(ctx context.Context, username, email, password, role string) (*auth.UserRecord, error)
}

// seedUsers registers users in order. Duplicates are skipped; any other
// failure stops the run with the offending entry's index.
func seedUsers(ctx context.Context, cmd *cobra.Command, svc registrar, users []seedUser) (seedResult, error) {
	var result seedResult
	for i, u := range users {
		record, err := svc.Register(ctx, u.Username, u.Email, u.Password, u.Role)
		if errors.Is(err, auth.ErrDuplicateUsername) {
			cmd.Printf("User %q already exists, skipping\n", u.Username)
			result.Skipped++
			continue
		}
		if err != nil {
			return result, oops.With("entry", i).Wrap(err)
		}
		cmd.Printf("Created user %q (id %d, role %s)\n", record.Username, record.ID, record.Role)
		result.Created++
	}
	return result, nil
}
