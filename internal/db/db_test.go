package db_test

import (
	"testing"

	"jobportal/application-service/internal/db"
)

func TestNewPostgresPoolRejectsBadURL(t *testing.T) {
	if _, err := db.NewPostgresPool(t.Context(), "postgres://%zz"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	if _, err := db.NewRedisClient(t.Context(), "http://localhost:6379"); err == nil {
		t.Fatal("expected parse error")
	}
}
