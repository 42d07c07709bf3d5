package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stillcare/carefront/pkg/formview"
	"github.com/stillcare/carefront/pkg/rules"
)

func discloseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disclose <form>",
		Short: "Apply a form's disclosure rules to a set of values",
		Long: `Seeds the form with --set values, applies every rule once and then
re-applies the rules bound to each --changed field in order. Prints the
resulting field states and submission values as JSON.`,
		Example: `  carefront disclose body_map --set photography_consent=true --set photos_taken=true --changed photos_taken
  carefront disclose body_map --set follow_up_required=true --extra role=nurse`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()

			pairs, _ := cmd.Flags().GetStringArray("set")
			changed, _ := cmd.Flags().GetStringArray("changed")
			values, err := parseAssignments("set", pairs)
			if err != nil {
				return err
			}
			extras, err := parseAssignments("extra", mustStringArray(cmd, "extra"))
			if err != nil {
				return err
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
			view := formview.New(&form)
			view.Load(values)

			d, err := store.Discloser(form.ID, a.disclosureOptions(extras)...)
			switch {
			case errors.Is(err, rules.ErrUnknownForm):
				if len(changed) > 0 {
					return fmt.Errorf("form %q has no disclosure rules", form.ID)
				}
			case err != nil:
				return err
			default:
				d.Init(view)
				for _, key := range changed {
					if !d.Changed(view, key) {
						return fmt.Errorf("field %q does not trigger any rule on %q", key, form.ID)
					}
				}
			}

			return writeIndented(cmd.OutOrStdout(), map[string]any{
				"form":   form.ID,
				"states": view.States(),
				"values": view.Values(),
			})
		},
	}
	cmd.Flags().StringArray("set", nil, "field value as key=value (repeatable)")
	cmd.Flags().StringArray("changed", nil, "field reported as changed after the initial pass (repeatable)")
	cmd.Flags().StringArray("extra", nil, "value for extras.<key> in when expressions, as key=value (repeatable)")
	return cmd
}

func mustStringArray(cmd *cobra.Command, name string) []string {
	values, _ := cmd.Flags().GetStringArray(name)
	return values
}

func parseAssignments(flag string, pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --%s %q, expected key=value", flag, pair)
		}
		out[key] = value
	}
	return out, nil
}

func writeIndented(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
