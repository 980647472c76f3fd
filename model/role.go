package model

type UserRole string

const (
	Owner     UserRole = "owner"
	TableRole UserRole = "table"
)
