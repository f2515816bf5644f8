package model

type Owner struct {
	ID   int64
	Name string
}
