package i18n

// TranslationSet is a set of localised strings for a given language
type TranslationSet struct {
	ErrorOccurred    string
	GpgNotFoundError string
	Cancel           string

	// prompts handed to the secret store; each carries a %s for the user id
	PassphrasePrompt string
	PinPrompt        string

	TerminalPrompt     string
	BadPassphraseRetry string

	UnexpectedStatusError   string
	StatusLineTooLongError  string
	NoValidRecipientsError  string
	BadPassphrasesError     string
	UnexpectedRequestError  string
	CancelledError          string
	GpgFailedError          string
	NoTerminalError         string
	NoEnvPassphraseError    string
	MissingRecipientError   string
	MissingSignatureError   string
	UnknownSubcommandError  string

	SignatureNone          string
	SignatureGood          string
	SignatureBad           string
	SignatureUnknown       string
	SignatureNeedPublicKey string
	SignedBy               string
	Fingerprint            string
	KeyCount               string
}
