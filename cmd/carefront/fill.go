package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stillcare/carefront/pkg/dataservice"
	"github.com/stillcare/carefront/pkg/disclosure"
	"github.com/stillcare/carefront/pkg/model"
	"github.com/stillcare/carefront/pkg/render"
	"github.com/stillcare/carefront/pkg/renderers/tui"
	"github.com/stillcare/carefront/pkg/rules"
)

func fillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill <form>",
		Short: "Fill in a form interactively in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()

			extras, err := parseAssignments("extra", mustStringArray(cmd, "extra"))
			if err != nil {
				return err
			}
			submit, _ := cmd.Flags().GetBool("submit")
			format, _ := cmd.Flags().GetString("format")
			if submit {
				format = string(tui.OutputFormatJSON)
			}

			catalogue, err := a.catalogue(cmd.Context())
			if err != nil {
				return err
			}
			store, err := a.rules()
			if err != nil {
				return err
			}
			form, err := catalogue.Form(args[0])
			if err != nil {
				return err
			}

			d, err := store.Discloser(form.ID, a.disclosureOptions(extras)...)
			if errors.Is(err, rules.ErrUnknownForm) {
				// Forms without a rule table show every field.
				d, err = disclosure.New(disclosure.Table{Form: form.ID})
			}
			if err != nil {
				return err
			}

			renderer, err := tui.New(tui.WithOutputFormat(tui.OutputFormat(format)), tui.WithDiscloser(d))
			if err != nil {
				return err
			}
			out, err := renderer.Render(cmd.Context(), form, render.Options{})
			if err != nil {
				return err
			}

			if !submit {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}

			var values map[string]any
			if err := json.Unmarshal(out, &values); err != nil {
				return fmt.Errorf("decode answers: %w", err)
			}
			if err := attachUploads(form, values); err != nil {
				return err
			}
			client, err := a.dataService()
			if err != nil {
				return err
			}
			created, err := client.Submit(cmd.Context(), form.Endpoint, values)
			if err != nil {
				var opErr *dataservice.OperationError
				if errors.As(err, &opErr) {
					for _, msg := range opErr.Messages() {
						fmt.Fprintln(cmd.ErrOrStderr(), msg)
					}
				}
				return err
			}
			a.logger.Info("form submitted", zap.String("form", form.ID), zap.String("endpoint", form.Endpoint))
			return writeIndented(cmd.OutOrStdout(), created)
		},
	}
	cmd.Flags().String("format", string(tui.OutputFormatJSON), "output format: json, form or pretty")
	cmd.Flags().Bool("submit", false, "submit the answers to the data service")
	cmd.Flags().StringArray("extra", nil, "value for extras.<key> in when expressions, as key=value (repeatable)")
	return cmd
}

// attachUploads replaces the path typed into each disclosed file field with
// the file's contents.
func attachUploads(form model.Form, values map[string]any) error {
	for _, field := range form.Fields {
		if field.Kind != model.FieldKindFile {
			continue
		}
		path, _ := values[field.Key].(string)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", field.Key, err)
		}
		contentType := mime.TypeByExtension(filepath.Ext(path))
		values[field.Key] = dataservice.Upload{Filename: filepath.Base(path), ContentType: contentType, Data: data}
	}
	return nil
}
