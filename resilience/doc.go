// Package resilience provides the retry, circuit breaker and bulkhead
// primitives that wrap provider calls.
//
// Cloud providers typically combine a breaker with retries:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("openai"))
//	err := cb.Execute(func() error {
//	    return resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), call)
//	})
//
// Local engines that saturate the CPU use a Bulkhead to cap parallel runs.
package resilience
