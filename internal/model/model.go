package model

// All returns every model the schema migration manages.
func All() []any {
	return []any{
		&User{}, &Admin{}, &Message{}, &Reply{}, &Statistic{},
		&Task{}, &Team{}, &TeamMember{}, &Quote{}, &GroupMention{},
	}
}
