package model

// All はAutoMigrateの対象
func All() []any {
	return []any{
		&User{},
		&AuthToken{},
		&Address{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&AuditLog{},
	}
}
