package entity

// Principal is the authenticated caller of a request.
type Principal struct {
	User   *User
	Claims *TokenClaims
}
