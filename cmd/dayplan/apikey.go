package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/dayplan/internal/auth"
	"github.com/nhle/dayplan/internal/model"
)

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	cmd.AddCommand(apikeyCreateCmd())
	return cmd
}

func apikeyCreateCmd() *cobra.Command {
	var user, name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return fmt.Errorf("--name must not be empty")
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			key, err := auth.GenerateKey()
			if err != nil {
				return err
			}
			rec, err := s.CreateAPIKey(cmd.Context(), model.APIKey{
				UserID:  user,
				Name:    name,
				Prefix:  key.Prefix,
				KeyHash: key.Hash,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created key %s (%s) for %s\n", rec.ID[:8], rec.Prefix, user)
			fmt.Printf("Key: %s\n", key.Plaintext)
			fmt.Println("Store it now; it is not shown again.")
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().StringVar(&name, "name", "", "label for the key")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
