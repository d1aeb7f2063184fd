package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", User: "ledger", Password: "secret", Name: "pharmatrade", Port: "5433"}
	assert.Equal(t, "host=db user=ledger password=secret dbname=pharmatrade port=5433 sslmode=disable", cfg.DSN())

	cfg.URL = "postgres://ledger:secret@db:5433/pharmatrade"
	assert.Equal(t, cfg.URL, cfg.DSN())
}
