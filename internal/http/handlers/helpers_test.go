package handlers_test

import (
	"time"

	"github.com/paygate/paygate/internal/auth"
)

func testJWTManager() *auth.Manager {
	return auth.NewManager("handler-test-secret", 30*time.Minute)
}
