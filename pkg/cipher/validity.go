package cipher

// SignatureStatus is the verdict reached about a signature
type SignatureStatus int

const (
	StatusNone SignatureStatus = iota
	StatusGood
	StatusBad
	StatusUnknown
	StatusNeedPublicKey
)

func (s SignatureStatus) String() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusBad:
		return "bad"
	case StatusUnknown:
		return "unknown"
	case StatusNeedPublicKey:
		return "need-public-key"
	}
	return "none"
}

// TrustLevel is how far the signing key is trusted, ordered as GnuPG orders it
type TrustLevel int

const (
	TrustNone TrustLevel = iota
	TrustNever
	TrustUndefined
	TrustMarginal
	TrustFully
	TrustUltimate
)

func (t TrustLevel) String() string {
	switch t {
	case TrustNever:
		return "never"
	case TrustUndefined:
		return "undefined"
	case TrustMarginal:
		return "marginal"
	case TrustFully:
		return "full"
	case TrustUltimate:
		return "ultimate"
	}
	return "none"
}

// Validity is what we learned about a signature
type Validity struct {
	Status SignatureStatus
	// Description is the backend's own diagnostic output, meant for humans
	Description string
	Trust       TrustLevel
	Signer      string
	Fingerprint string
}
