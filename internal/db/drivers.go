package db

import (
	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"
)
