package conversation

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// jsonOrNull wraps raw JSON text for a jsonb column, substituting null for
// empty or invalid payloads.
func jsonOrNull(raw string) datatypes.JSON {
	if raw == "" || !json.Valid([]byte(raw)) {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON([]byte(raw))
}
