package audit

import (
	"encoding/json"
	"strings"
)

// maxMetadataBytes bounds the serialized size of any metadata payload
// written to the audit trail. Larger payloads are replaced with a
// truncation marker that keeps a prefix of the original.
const maxMetadataBytes = 2000

// redactedValue replaces sensitive field values in audit metadata.
const redactedValue = "[REDACTED]"

// sensitiveFields are matched case-insensitively against metadata keys
// at every nesting level.
var sensitiveFields = []string{
	"password",
	"confirmPassword",
	"currentPassword",
	"newPassword",
	"token",
	"refreshToken",
	"accessToken",
	"secret",
	"key",
	"salt",
}

func isSensitiveField(name string) bool {
	for _, field := range sensitiveFields {
		if strings.EqualFold(name, field) {
			return true
		}
	}

	return false
}

// Sanitize redacts sensitive fields from a metadata value and serializes
// it to JSON, truncating oversized payloads. A nil value yields nil.
func Sanitize(value interface{}) []byte {
	if value == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}

	// Round-trip through generic JSON so nested maps can be walked
	// regardless of the caller's concrete type.
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}

	clean, err := json.Marshal(redact(generic))
	if err != nil {
		return nil
	}

	return truncate(clean)
}

func redact(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		for name, nested := range typed {
			if isSensitiveField(name) {
				typed[name] = redactedValue
				continue
			}

			typed[name] = redact(nested)
		}

		return typed
	case []interface{}:
		for i, nested := range typed {
			typed[i] = redact(nested)
		}

		return typed
	default:
		return value
	}
}

func truncate(raw []byte) []byte {
	if len(raw) <= maxMetadataBytes {
		return raw
	}

	marker := map[string]interface{}{
		"_truncated":      true,
		"_originalLength": len(raw),
		"_data":           string(raw[:maxMetadataBytes]) + "...",
	}

	wrapped, err := json.Marshal(marker)
	if err != nil {
		return raw[:maxMetadataBytes]
	}

	return wrapped
}
