package logger

import "time"

// Field keys shared by the engine, bridge and host packages.
const (
	FieldComponent = "component"
	FieldContextID = "context_id"
	FieldIssuer    = "issuer"
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldState     = "state"
	FieldTokenType = "token_type"
	FieldKeyCount  = "keys"
	FieldAttempt   = "attempt"
)

// Fields pairs up alternating keys and values. Non-string keys and a
// trailing key without a value are dropped.
//
//	log.Debug("key set updated", logger.Fields(logger.FieldKeyCount, n))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 1; i < len(kvs); i += 2 {
		if key, ok := kvs[i-1].(string); ok {
			m[key] = kvs[i]
		}
	}
	return m
}

// ErrorFields tags err with the operation that produced it.
func ErrorFields(op string, err error) map[string]interface{} {
	return Fields(FieldOperation, op, FieldError, err.Error())
}

// IssuerFields is Fields with the issuer key set first. Durations are
// converted to milliseconds under FieldDuration.
func IssuerFields(iss string, kvs ...interface{}) map[string]interface{} {
	m := Fields(kvs...)
	m[FieldIssuer] = iss
	for k, v := range m {
		if d, ok := v.(time.Duration); ok {
			delete(m, k)
			m[FieldDuration] = d.Milliseconds()
		}
	}
	return m
}
