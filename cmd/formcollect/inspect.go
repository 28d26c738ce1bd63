package main

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/tbxark/formcollect"
	"github.com/tbxark/formcollect/docschema"
	"github.com/tbxark/formcollect/types"
)

var formsCmd = &cobra.Command{
	Use:   "forms",
	Short: "List the loaded forms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		fmt.Fprintln(cmd.OutOrStdout(), types.FormatForms(a.forms.Forms(cmd.Context())))
		return nil
	},
}

var fieldsCmd = &cobra.Command{
	Use:   "fields <form>",
	Short: "Show the fields still to collect for a form",
	Args:  cobra.ExactArgs(1),
	RunE:  runFields,
}

var schemaCmd = &cobra.Command{
	Use:   "schema <form>",
	Short: "Print the JSON Schema of a form's submission data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		tree, err := a.forms.Form(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		raw, err := sonic.ConfigStd.MarshalIndent(docschema.Build(tree), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	},
}

func init() {
	fieldsCmd.Flags().StringP("data", "d", "", "JSON file with the flat form data collected so far")
	fieldsCmd.Flags().StringP("parent", "p", "", "data path of the nested component to inspect")
	fieldsCmd.Flags().String("criteria", "required", "required, optional or all")
	fieldsCmd.Flags().Bool("json", false, "print the result as JSON")
}

func runFields(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	tree, err := a.forms.Form(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	dataFile, _ := cmd.Flags().GetString("data")
	data, err := readFormData(dataFile)
	if err != nil {
		return err
	}
	parent, _ := cmd.Flags().GetString("parent")
	criteria, _ := cmd.Flags().GetString("criteria")
	step, err := a.engine.Fields(cmd.Context(), tree, formcollect.FieldsRequest{
		FormData:   data,
		ParentPath: parent,
		Criteria:   formcollect.ParseCriteria(criteria),
	})
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		raw, err := sonic.ConfigStd.MarshalIndent(step, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), types.FormatStep(step))
	return nil
}

func readFormData(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form data: %w", err)
	}
	var data map[string]any
	if err := sonic.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode form data %s: %w", path, err)
	}
	return data, nil
}
