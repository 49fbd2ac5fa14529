package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abzagency/signup-api/internal/form"
	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/internal/services"
	"github.com/abzagency/signup-api/internal/validation"
	"github.com/spf13/cobra"
)

type registerOutput struct {
	Phase     string            `json:"phase"`
	User      *models.User      `json:"user,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	FormError string            `json:"formError,omitempty"`
}

type registerOptions struct {
	name       string
	email      string
	phone      string
	positionID string
	photoPath  string
	mountWait  time.Duration
}

func newRegisterCmd(root *rootOptions) *cobra.Command {
	opts := &registerOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Fill in the sign-up form and submit it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := register(cmd.Context(), root, opts)
			if err != nil {
				return err
			}
			if writeErr := writeJSON(cmd.OutOrStdout(), out); writeErr != nil {
				return writeErr
			}
			if out.Phase != form.PhaseSucceeded.String() {
				return fmt.Errorf("registration failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "User name")
	cmd.Flags().StringVar(&opts.email, "email", "", "Email address")
	cmd.Flags().StringVar(&opts.phone, "phone", "", "Phone number, +380XXXXXXXXX")
	cmd.Flags().StringVar(&opts.positionID, "position", "", "Position id (see the positions command)")
	cmd.Flags().StringVar(&opts.photoPath, "photo", "", "Path to a JPEG photo")
	cmd.Flags().DurationVar(&opts.mountWait, "mount-timeout", 15*time.Second, "How long to wait for the token and positions")
	for _, name := range []string{"name", "email", "phone", "position", "photo"} {
		_ = cmd.MarkFlagRequired(name) //nolint:errcheck
	}
	return cmd
}

// register drives a form the way a user would: type each field, pick the
// position and the photo, then submit
func register(ctx context.Context, root *rootOptions, opts *registerOptions) (registerOutput, error) {
	data, err := os.ReadFile(opts.photoPath)
	if err != nil {
		return registerOutput{}, fmt.Errorf("failed to read photo: %w", err)
	}

	controller := form.NewController(root.client(), validation.NewEngine(), form.Options{})
	controller.Mount(ctx)
	defer controller.Unmount()

	select {
	case <-controller.Mounted():
	case <-time.After(opts.mountWait):
		return registerOutput{}, fmt.Errorf("timed out waiting for the registration token")
	case <-ctx.Done():
		return registerOutput{}, ctx.Err()
	}

	events := []form.Event{
		form.FieldChanged{Field: models.FieldName, Value: opts.name},
		form.FieldChanged{Field: models.FieldEmail, Value: opts.email},
		form.FieldChanged{Field: models.FieldPhone, Value: opts.phone},
		form.PositionSelected{PositionID: opts.positionID},
		form.PhotoSelected{Photo: services.NewPhoto(filepath.Base(opts.photoPath), data)},
	}

	var state form.State
	for _, ev := range events {
		if state, err = controller.Apply(ctx, ev); err != nil {
			return registerOutput{}, err
		}
	}

	if !state.TokenAvailable {
		return registerOutput{}, fmt.Errorf("registration token unavailable")
	}
	if !form.CanSubmit(state) {
		return outputFor(state), nil
	}

	state, err = controller.Submit(ctx)
	if err != nil {
		return registerOutput{}, err
	}
	return outputFor(state), nil
}

func outputFor(state form.State) registerOutput {
	out := registerOutput{
		Phase:     state.Phase.String(),
		FormError: state.FormError(),
		Errors:    map[string]string{},
	}
	for field, msg := range state.Errors.Messages() {
		if field != string(models.FieldForm) {
			out.Errors[field] = msg
		}
	}
	if state.Phase == form.PhaseSucceeded {
		out.User = state.LastUser
	}
	return out
}
