package commands

import (
	"io"

	"github.com/jesseduffield/lazygpg/pkg/config"
	"github.com/jesseduffield/lazygpg/pkg/i18n"
	"github.com/sirupsen/logrus"
)

// This file exports dummy constructors for use by tests in other packages

// NewDummyOSCommand creates a new dummy OSCommand for testing
func NewDummyOSCommand() *OSCommand {
	return NewOSCommand(NewDummyLog(), NewDummyAppConfig())
}

// NewDummyAppConfig creates a new dummy AppConfig for testing
func NewDummyAppConfig() *config.AppConfig {
	userConfig := config.GetDefaultConfig()
	userConfig.Language = "en"

	appConfig := &config.AppConfig{
		Name:        "lazygpg",
		Version:     "unversioned",
		Commit:      "",
		BuildDate:   "",
		Debug:       false,
		BuildSource: "",
		UserConfig:  &userConfig,
	}
	return appConfig
}

// NewDummyLog creates a new dummy Log for testing
func NewDummyLog() *logrus.Entry {
	log := logrus.New()
	log.Out = io.Discard
	return log.WithField("test", "test")
}

// NewDummyGpgCommand creates a new dummy GpgCommand for testing. It talks
// UTF-8 regardless of the environment.
func NewDummyGpgCommand(store SecretStore) *GpgCommand {
	appConfig := NewDummyAppConfig()
	return &GpgCommand{
		Log:       NewDummyLog(),
		OSCommand: NewOSCommand(NewDummyLog(), appConfig),
		Tr:        i18n.NewTranslationSet(NewDummyLog(), appConfig.UserConfig.Language),
		Config:    appConfig,
		Store:     store,
	}
}
