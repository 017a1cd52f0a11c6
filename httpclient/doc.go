// Package httpclient performs the engine's issuer requests: discovery,
// key set and userinfo.
//
// Every non-2xx answer becomes a classified *Error (see ClassifyStatusCode),
// so callers can tell a rejected token (401) from an unhealthy issuer (5xx).
// A client may carry a circuit breaker; DefaultCircuitBreakerConfig only
// counts failures that are not 4xx answers.
//
//	client, err := httpclient.New(httpclient.Config{
//	    HTTP:           transportClient,
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("userinfo"),
//	})
//
//	var claims map[string]any
//	err = client.GetJSON(ctx, httpclient.Request{
//	    URL:         endpoint,
//	    BearerToken: accessToken,
//	}, &claims)
package httpclient
