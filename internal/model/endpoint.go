package model

// Endpoint names a remote operation. Each endpoint is reachable at
// <base URL>/<Endpoint>.php with an HTTP POST carrying a flat JSON object.
type Endpoint string

// Known endpoints.
const (
	EndpointLogin      Endpoint = "Login"
	EndpointUserInfo   Endpoint = "GetUserInfo"
	EndpointInventory  Endpoint = "GetInventory"
	EndpointNewRequest Endpoint = "NewRequest"
	EndpointSubmitLog  Endpoint = "SubmitLog"
)

// Endpoints lists every known endpoint.
var Endpoints = []Endpoint{
	EndpointLogin,
	EndpointUserInfo,
	EndpointInventory,
	EndpointNewRequest,
	EndpointSubmitLog,
}

// Request and response field names.
const (
	FieldUsername            = "username"
	FieldPassword            = "password"
	FieldAuthToken           = "authToken"
	FieldTimestamp           = "timestamp"
	FieldItemName            = "itemName"
	FieldQuantity            = "quantity"
	FieldActivityDescription = "activityDescription"

	FieldLoginSuccessful = "loginSuccessful"
	FieldSuccess         = "success"
	FieldMessage         = "message"
	FieldError           = "error"
)

// Path returns the endpoint's path relative to the API base URL.
func (e Endpoint) Path() string {
	return string(e) + ".php"
}

// SuccessField returns the name of the boolean flag that reports whether the
// operation succeeded. SubmitLog responses are never inspected, so it has none.
func (e Endpoint) SuccessField() string {
	switch e {
	case EndpointLogin:
		return FieldLoginSuccessful
	case EndpointSubmitLog:
		return ""
	default:
		return FieldSuccess
	}
}

// Authenticated reports whether the endpoint requires username and authToken.
func (e Endpoint) Authenticated() bool {
	return e != EndpointLogin
}

// Valid reports whether e is a known endpoint.
func (e Endpoint) Valid() bool {
	for _, known := range Endpoints {
		if e == known {
			return true
		}
	}
	return false
}
