package i18n

func germanSet() TranslationSet {
	return TranslationSet{
		GpgNotFoundError: "gpg wurde nicht gefunden. Ist GnuPG installiert und im PATH?",
		Cancel:           "abbrechen",

		PassphrasePrompt: "Sie benötigen eine Passphrase, um den Schlüssel zu entsperren für\nBenutzer: \"%s\"",
		PinPrompt:        "Sie benötigen eine PIN, um den Schlüssel Ihrer\nSmartCard zu entsperren: \"%s\"",

		TerminalPrompt:     "Passphrase: ",
		BadPassphraseRetry: "Falsche Passphrase, bitte erneut versuchen.",

		NoValidRecipientsError: "Keine gültigen Empfänger angegeben",
		BadPassphrasesError:    "Geheimer Schlüssel konnte nicht entsperrt werden: 3 falsche Passphrasen eingegeben.",
		CancelledError:         "Abgebrochen",
		GpgFailedError:         "gpg konnte nicht ausgeführt werden.",

		SignatureNone:          "nicht signiert",
		SignatureGood:          "gültige Signatur",
		SignatureBad:           "ungültige Signatur",
		SignatureUnknown:       "gültige Signatur eines nicht vertrauenswürdigen Schlüssels",
		SignatureNeedPublicKey: "Signatur nicht prüfbar: öffentlicher Schlüssel fehlt",
		SignedBy:               "signiert von",
		Fingerprint:            "Fingerabdruck",
		KeyCount:               "Schlüssel",
	}
}
