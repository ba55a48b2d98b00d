// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - Search session cookies
//   - Per-client rate limiting
//   - API key authentication for admin endpoints
//
// # Health Checks
//
// CompositeHealthChecker runs named checks in parallel. Required checks decide
// readiness; optional ones (the Redis session store) only mark the service
// degraded:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("dataset", handlers.NewDatasetCheck(cache, false))
//	checker.AddCheck("database", conn.HealthCheck)
//	checker.AddOptionalCheck("redis", handlers.NewPingCheck(redisCache))
//
//	status := checker.Check(ctx)
//	if status.Status != handlers.StatusOK {
//	    log.Printf("health: %s", status.Message)
//	}
//
// # Middleware
//
//	limiter := handlers.NewRateLimiter(120)
//	go limiter.Run(ctx)
//
//	handler := handlers.ChainHandler(
//	    mux,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.SessionMiddleware("explorer_session", 24*time.Hour),
//	)
//
// The session id is read back with handlers.SessionID(r.Context()).
package handlers
