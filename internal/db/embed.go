package db

import "embed"

// EmbedMigrations contains the star schema migrations.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS

// EmbedSeed contains the demo rows loaded by SeedDemo.
//
//go:embed seed/*.sql
var EmbedSeed embed.FS
