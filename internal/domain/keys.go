package domain

import "context"

type KeyPurpose string

const KeyPurposeVoucher KeyPurpose = "voucher"

// KeyRef names the SigningIdentity; the key material never leaves its backend.
type KeyRef struct {
	Purpose KeyPurpose
	KID     string
}

// KeyManager signs 32-byte digests with secp256k1 keys resolved by KeyRef and
// returns 65-byte recoverable signatures (r || s || v, v in {27, 28}).
// Verify takes the expected signer address so it works without key access.
type KeyManager interface {
	Sign(ctx context.Context, ref KeyRef, digest []byte) ([]byte, error)
	Verify(ctx context.Context, ref KeyRef, digest []byte, sig []byte, signer Address) error
}
