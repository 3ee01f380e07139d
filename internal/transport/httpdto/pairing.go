package httpdto

// IssuePairingTokenResponse is returned by POST /v1/pairing/tokens. The raw
// token is shown once and never stored.
type IssuePairingTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	QRPayload string `json:"qr_payload"`
}

// RedeemPairingRequest is used for POST /v1/pairing/redeem. Token may be the
// raw token or the full QR payload.
type RedeemPairingRequest struct {
	Token       string `json:"token" binding:"required"`
	DeviceClass string `json:"device_class" binding:"required"`
	PublicKey   string `json:"public_key" binding:"required"`
}

type InvalidatePairingResponse struct {
	Invalidated int64 `json:"invalidated"`
}
