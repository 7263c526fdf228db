package i18n

func polishSet() TranslationSet {
	return TranslationSet{
		ErrorOccurred:    "Wystąpił błąd! Utwórz zgłoszenie na https://github.com/jesseduffield/lazygpg/issues",
		GpgNotFoundError: "Nie znaleziono gpg. Czy GnuPG jest zainstalowany i dostępny w PATH?",
		Cancel:           "anuluj",

		PassphrasePrompt: "Potrzebujesz hasła, aby odblokować klucz\nużytkownika: \"%s\"",
		PinPrompt:        "Potrzebujesz kodu PIN, aby odblokować klucz\nkarty: \"%s\"",

		TerminalPrompt:     "Hasło: ",
		BadPassphraseRetry: "Błędne hasło, spróbuj ponownie.",

		NoValidRecipientsError: "Nie podano żadnych poprawnych odbiorców",
		BadPassphrasesError:    "Nie udało się odblokować klucza prywatnego: podano 3 błędne hasła.",
		CancelledError:         "Anulowano",
		GpgFailedError:         "Nie udało się uruchomić gpg.",
		NoTerminalError:        "Brak terminala, w którym można zapytać o hasło",

		SignatureNone:          "brak podpisu",
		SignatureGood:          "poprawny podpis",
		SignatureBad:           "niepoprawny podpis",
		SignatureUnknown:       "poprawny podpis klucza bez zaufania",
		SignatureNeedPublicKey: "nie można zweryfikować podpisu: brak klucza publicznego",
		SignedBy:               "podpisane przez",
		Fingerprint:            "odcisk",
		KeyCount:               "kluczy",
	}
}
