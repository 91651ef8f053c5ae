package lego

import "errors"

var (
	ErrInvalidCSR           = errors.New("lego: invalid certificate request")
	ErrInvalidCertificate   = errors.New("lego: invalid certificate pem")
	ErrAuthorizationInvalid = errors.New("lego: authorization failed")
	ErrOrderInvalid         = errors.New("lego: order failed")
	ErrOrderNotReady        = errors.New("lego: order did not complete in time")
)
