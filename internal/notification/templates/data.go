package templates

// CodeData holds the variables shared by the one-time code templates.
type CodeData struct {
	Name         string
	Code         string
	ValidMinutes int
	AppName      string
}

// SignupCode is sent when someone starts a signup and must confirm their address.
var SignupCode = Expect[CodeData]("auth.signup_code")

// LoginCode is sent when a verified account asks for a passwordless login.
var LoginCode = Expect[CodeData]("auth.login_code")
