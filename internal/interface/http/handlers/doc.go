// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - Reusable middleware components
//   - Authentication middleware
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//	checker.AddCheck("cache_breaker", handlers.NewBreakerCheck("redis", breaker))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Middleware
//
// The package provides several reusable middleware components:
//
//	// API Key authentication
//	auth := handlers.NewAPIKeyAuth("X-API-Key", []string{"secret-key"})
//	protected := auth.Middleware(myHandler)
//
//	// Request body size limit
//	limited := handlers.RequestSizeLimitMiddleware(5 << 20)(myHandler)
//
//	// Security headers
//	secure := handlers.SecurityHeadersMiddleware(myHandler)
//
//	// Chain multiple middleware
//	handler := handlers.ChainHandler(
//	    myHandler,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.NoCacheMiddleware,
//	    auth.Middleware,
//	)
//
// # Best Practices
//
// When implementing health checks:
//   - Use timeouts to prevent slow checks from blocking the response
//   - Include critical dependencies like database and cache
//   - Keep checks fast (< 1 second ideally)
//   - Return detailed information for debugging
//
// When using middleware:
//   - Apply security middleware early in the chain
//   - Apply authentication before authorization
//   - Use request size limits on endpoints that accept bulk payloads
package handlers
