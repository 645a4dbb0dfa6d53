package model

type Account struct {
	Email      string
	Password   string
	PriceDelta int
}

func (a Account) String() string {
	return a.Email
}
