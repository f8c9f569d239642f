package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ehr/claims/internal/config"
	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/domain/normalize"
	"github.com/ehr/claims/internal/domain/validation"
)

type normalizeOptions struct {
	format   string
	file     string
	validate bool
	output   string
}

// normalizeOutput is what the normalize command prints.
type normalizeOutput struct {
	Claim   *claim.CanonicalClaim `json:"claim"`
	Verdict *validation.Verdict   `json:"verdict,omitempty"`
}

func normalizeCmd() *cobra.Command {
	var opts normalizeOptions
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize a payer payload file without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if opts.file != "" && opts.file != "-" {
				f, err := os.Open(opts.file)
				if err != nil {
					return fmt.Errorf("open payload: %w", err)
				}
				defer f.Close()
				in = f
			}
			return runNormalize(in, cmd.OutOrStdout(), opts, newNormalizer(cfg), newValidator(cfg))
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "generic", "Source format: "+fmt.Sprint(normalize.SupportedFormats()))
	cmd.Flags().StringVar(&opts.file, "file", "-", "Payload file, or - for stdin")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "Validate the normalized claim")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "Output format: json or yaml")
	return cmd
}

func runNormalize(in io.Reader, out io.Writer, opts normalizeOptions, n *normalize.Normalizer, v *validation.Validator) error {
	if opts.output != "json" && opts.output != "yaml" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	c, err := n.NormalizeJSON(data, opts.format)
	if err != nil {
		return err
	}
	result := normalizeOutput{Claim: c}
	if opts.validate {
		verdict := v.Validate(c)
		result.Verdict = &verdict
	}

	if opts.output == "yaml" {
		b, err := toYAML(result)
		if err != nil {
			return err
		}
		_, err = out.Write(b)
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// toYAML renders v through its JSON form so the YAML keys, decimals and
// timestamps match the API output.
func toYAML(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("convert output: %w", err)
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

// blockStyle drops the flow and quoting styles inherited from JSON. Strings
// that would read back as another type are still quoted by the encoder.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}
