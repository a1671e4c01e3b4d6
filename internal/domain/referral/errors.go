package referral

import "errors"

// Sentinel errors of the shop decoder. Resolution never surfaces them; they
// exist so the decoder can be tested and reused on its own.
var (
	ErrShopEncoding = errors.New("shop parameter is not valid base64")
	ErrShopDomain   = errors.New("decoded shop url is outside the commerce domain")
	ErrEmptyID      = errors.New("sponsor id must not be empty")
)
