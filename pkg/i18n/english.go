package i18n

func englishSet() TranslationSet {
	return TranslationSet{
		ErrorOccurred:    "An error occurred! Please create an issue at https://github.com/jesseduffield/lazygpg/issues",
		GpgNotFoundError: "Could not find gpg. Is GnuPG installed and on your PATH? You can also set gpg.path in your config",
		Cancel:           "cancel",

		PassphrasePrompt: "You need a passphrase to unlock the key for\nuser: \"%s\"",
		PinPrompt:        "You need a PIN to unlock the key for your\nSmartCard: \"%s\"",

		TerminalPrompt:     "Passphrase: ",
		BadPassphraseRetry: "Bad passphrase, try again.",

		UnexpectedStatusError:  "Unexpected GnuPG status message",
		StatusLineTooLongError: "GnuPG status line exceeds the maximum length",
		NoValidRecipientsError: "No valid recipients specified",
		BadPassphrasesError:    "Failed to unlock secret key: 3 bad passphrases given.",
		UnexpectedRequestError: "Unexpected request from GnuPG for '%s'",
		CancelledError:         "Cancelled",
		GpgFailedError:         "Failed to execute gpg.",
		NoTerminalError:        "No terminal available to ask for a passphrase",
		NoEnvPassphraseError:   "Environment variable %s is not set",
		MissingRecipientError:  "At least one recipient is required",
		MissingSignatureError:  "The detached signature file does not exist",
		UnknownSubcommandError: "Please specify a subcommand: sign, verify, encrypt, decrypt, import or export",

		SignatureNone:          "not signed",
		SignatureGood:          "good signature",
		SignatureBad:           "bad signature",
		SignatureUnknown:       "valid signature from an untrusted key",
		SignatureNeedPublicKey: "cannot verify signature: public key not found",
		SignedBy:               "signed by",
		Fingerprint:            "fingerprint",
		KeyCount:               "keys",
	}
}
