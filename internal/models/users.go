package models

// RootPassword state of the root account in the installation plan
type RootPassword struct {
	Set     bool
	Crypted bool
	Value   string
}

// PasswordPolicy for the root account
type PasswordPolicy struct {
	MinLen int  `yaml:"minlen" json:"minlen"`
	Strict bool `yaml:"strict" json:"strict"`
}
