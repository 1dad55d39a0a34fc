package models

// All returns every model managed by migrations, parents first.
func All() []interface{} {
	return []interface{}{
		&School{},
		&Term{},
		&Class{},
		&Subject{},
		&Student{},
		&GradingSystem{},
		&GradingLevel{},
		&Assessment{},
		&ActivityLog{},
	}
}
