package conversation_test

import (
	"testing"

	"mashup-server/internal/domain/conversation"
)

func TestRole_Valid(t *testing.T) {
	tests := []struct {
		name     string
		role     conversation.Role
		expected bool
	}{
		{"user", conversation.RoleUser, true},
		{"assistant", conversation.RoleAssistant, true},
		{"system", conversation.RoleSystem, true},
		{"tool", conversation.RoleTool, true},
		{"unknown role", conversation.Role("moderator"), false},
		{"empty role", conversation.Role(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.Valid(); got != tt.expected {
				t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.expected)
			}
		})
	}
}
