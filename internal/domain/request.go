package domain

// RawMintRequest is the caller-supplied body before validation.
type RawMintRequest struct {
	Address string
	Token   string
}

type MintRequest struct {
	Requester  Address
	ProofToken string
}

func ParseMintRequest(raw RawMintRequest) (MintRequest, error) {
	if raw.Address == "" || raw.Token == "" {
		return MintRequest{}, ErrInvalidRequest
	}
	requester, err := ParseAddress(raw.Address)
	if err != nil {
		return MintRequest{}, ErrInvalidRequest
	}
	return MintRequest{Requester: requester, ProofToken: raw.Token}, nil
}

type AdmissionResult struct {
	Approved   bool
	Request    MintRequest
	ErrorCodes []string
}

// AdmissionVerdict is the verifier's answer for one proof token.
type AdmissionVerdict struct {
	Success    bool
	ErrorCodes []string
}
