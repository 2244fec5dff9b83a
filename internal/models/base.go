package models

import (
	"strings"

	"github.com/google/uuid"
)

// ensureUUID 为空主键生成 UUID
func ensureUUID(id *string) {
	if id == nil {
		return
	}
	if strings.TrimSpace(*id) == "" {
		*id = uuid.NewString()
	}
}
