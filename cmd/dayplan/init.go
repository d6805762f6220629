package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/dayplan/internal/auth"
	"github.com/nhle/dayplan/internal/credential"
	"github.com/nhle/dayplan/internal/model"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively write the config file and store the Anthropic API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := initAnswers{
				listen:      cfg.Server.Listen,
				dbPath:      cfg.Database.Path,
				timezone:    cfg.Timezone,
				userHeader:  cfg.Auth.UserHeader,
				trustHeader: cfg.Auth.TrustHeader,
			}
			if err := initForm(&answers).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return fmt.Errorf("running setup form: %w", err)
			}

			if err := answers.apply(cfg); err != nil {
				return err
			}
			if err := model.SaveConfig(configPath, cfg); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", configPath)

			if key := strings.TrimSpace(answers.apiKey); key != "" {
				if err := credential.Set(credential.AnthropicKey, key); err != nil {
					return err
				}
				fmt.Println("Stored Anthropic API key in the system keyring")
			}
			return nil
		},
	}
}

type initAnswers struct {
	listen      string
	dbPath      string
	timezone    string
	userHeader  string
	trustHeader bool
	apiKey      string
}

func initForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Placeholder(":8080").
				Value(&a.listen).
				Validate(validateRequired("Listen address")),
			huh.NewInput().
				Title("Database Path").
				Value(&a.dbPath).
				Validate(validateRequired("Database path")),
			huh.NewInput().
				Title("Timezone").
				Description("IANA name such as Europe/Berlin, or Local").
				Value(&a.timezone).
				Validate(validateTimezone),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Trust identity header?").
				Description("Only enable behind an identity proxy").
				Value(&a.trustHeader),
			huh.NewInput().
				Title("Identity Header").
				Value(&a.userHeader).
				Validate(validateRequired("Identity header")),
			huh.NewInput().
				Title("Anthropic API Key").
				Description("Leave empty to keep the stored key").
				EchoMode(huh.EchoModePassword).
				Value(&a.apiKey),
		),
	)
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateTimezone(tz string) error {
	if tz == "" || tz == "Local" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("unknown timezone %q", tz)
	}
	return nil
}

// apply copies the answers into c and fills in a service token if the
// config has none.
func (a initAnswers) apply(c *model.AppConfig) error {
	c.Server.Listen = strings.TrimSpace(a.listen)
	c.Database.Path = strings.TrimSpace(a.dbPath)
	c.Timezone = strings.TrimSpace(a.timezone)
	c.Auth.UserHeader = strings.TrimSpace(a.userHeader)
	c.Auth.TrustHeader = a.trustHeader

	if c.Auth.ServiceToken == "" {
		token, err := auth.GenerateServiceToken()
		if err != nil {
			return err
		}
		c.Auth.ServiceToken = token
	}
	return nil
}
