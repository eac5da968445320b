package cli

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/linkdeck/internal/models"
	"github.com/dmitrijs2005/linkdeck/internal/vault"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func vaultCmd(app *App) *cobra.Command {
	command := &cobra.Command{
		Use:   "vault",
		Short: "manage the encrypted private link area",
	}
	command.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	command.AddCommand(vaultUnlockCmd(app))
	command.AddCommand(vaultLockCmd(app))
	command.AddCommand(vaultShowCmd(app))
	command.AddCommand(vaultAddCmd(app))
	command.AddCommand(vaultPasswdCmd(app))
	return command
}

// vaultPassword resolves the password for a vault operation. An unlocked
// session answers from memory, sync mode falls back to the shared sync
// password, anything else prompts.
func (a *App) vaultPassword(prompt string) (string, error) {
	if p, err := a.vault.Password(); err == nil {
		return p, nil
	}
	if a.vault.Mode() == vault.ModeSync && a.config.SyncPassword != "" {
		return a.config.SyncPassword, nil
	}
	return GetPassword(prompt, os.Stdout)
}

func vaultUnlockCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "verify the vault password and unlock for this session",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := app.engine.Document()
			ciphertext := ""
			if doc != nil {
				ciphertext = doc.PrivateVault
			}

			password, err := GetPassword("Vault password", os.Stdout)
			if err != nil {
				return err
			}
			if err := app.vault.Unlock(password, ciphertext); err != nil {
				return err
			}
			fmt.Println("vault unlocked")
			return nil
		},
	}
}

func vaultLockCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "drop the cached vault password",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.vault.Lock()
			fmt.Println("vault locked")
			return nil
		},
	}
}

func vaultShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "decrypt and list private links",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := app.engine.Document()
			if doc == nil || doc.PrivateVault == "" {
				fmt.Println("vault is empty")
				return nil
			}

			password, err := app.vaultPassword("Vault password")
			if err != nil {
				return err
			}
			if err := app.vault.Unlock(password, doc.PrivateVault); err != nil {
				return err
			}

			payload, err := vault.Decrypt(password, doc.PrivateVault)
			if err != nil {
				return err
			}

			if len(payload.Links) == 0 {
				fmt.Println("vault is empty")
				return nil
			}
			for _, l := range payload.Links {
				fmt.Printf("  %-12s %-24s %s\n", l.ID, l.Title, l.URL)
			}
			return nil
		},
	}
}

func vaultAddCmd(app *App) *cobra.Command {
	var title, url string

	command := &cobra.Command{
		Use:     "add",
		Short:   "add a private link",
		Example: "linkdeck vault add -t <title> -u <url>",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				return fmt.Errorf("flag -u is required")
			}
			if title == "" {
				title = url
			}

			doc := app.engine.Document()
			password, err := app.vaultPassword("Vault password")
			if err != nil {
				return err
			}

			var payload vault.Payload
			if doc != nil && doc.PrivateVault != "" {
				payload, err = vault.Decrypt(password, doc.PrivateVault)
				if err != nil {
					return err
				}
			}

			payload.Links = append(payload.Links, models.Link{
				ID:    uuid.NewString()[:8],
				Title: title,
				URL:   url,
			})

			ciphertext, err := vault.Encrypt(password, payload)
			if err != nil {
				return err
			}

			if err := app.engine.Update(cmd.Context(), func(d *models.SyncDocument) {
				d.PrivateVault = ciphertext
			}); err != nil {
				return err
			}

			fmt.Println("private link added, sync scheduled")
			app.engine.SyncNow(cmd.Context())
			return nil
		},
	}

	command.Flags().StringVarP(&title, "title", "t", "", "link title")
	command.Flags().StringVarP(&url, "url", "u", "", "link URL")
	return command
}

func vaultPasswdCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "change the vault password",
		Long: `Change the password the private vault is encrypted with. The vault is
decrypted with the old password and re-encrypted with the new one, links
inside are untouched. Running passwd detaches the vault from the shared
sync password.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := app.engine.Document()
			if doc == nil || doc.PrivateVault == "" {
				return fmt.Errorf("vault is empty, nothing to re-encrypt")
			}

			oldPassword, err := app.vaultPassword("Current vault password")
			if err != nil {
				return err
			}
			if err := app.vault.Unlock(oldPassword, doc.PrivateVault); err != nil {
				return err
			}
			newPassword, err := GetPassword("New vault password", os.Stdout)
			if err != nil {
				return err
			}
			confirm, err := GetPassword("Repeat new vault password", os.Stdout)
			if err != nil {
				return err
			}
			if newPassword != confirm {
				return fmt.Errorf("passwords do not match")
			}

			ciphertext, err := app.vault.SwitchMode(vault.ModeSeparate, oldPassword, newPassword, doc.PrivateVault)
			if err != nil {
				return err
			}

			if err := app.engine.Update(cmd.Context(), func(d *models.SyncDocument) {
				d.PrivateVault = ciphertext
			}); err != nil {
				return err
			}

			fmt.Println("vault password changed, sync scheduled")
			app.engine.SyncNow(cmd.Context())
			return nil
		},
	}
}
