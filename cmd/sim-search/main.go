// 命令行查询工具：复用服务端同一套校验与重组逻辑，直接输出信封（JSON/YAML），便于排查上游结构变化
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"sim-api/internal/logger"
	"sim-api/internal/lookup"
	"sim-api/internal/simownership"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func main() {
	_ = godotenv.Load(".env")
	logger.Setup()
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if lookup.KindOf(err) == lookup.KindValidation {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "sim-search",
		Usage:     "Look up a mobile number or CNIC through the upstream service",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "Upstream form endpoint",
				Value:   simownership.DefaultEndpoint,
				Sources: cli.EnvVars("SIM_UPSTREAM_URL"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Upstream request timeout",
				Value: simownership.DefaultTimeout,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"t"},
				Usage:   "Output format (json, yaml)",
				Value:   "json",
			},
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "Print only the flattened result records",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format := strings.ToLower(cmd.String("format"))
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown output format: %q", format)
			}
			q, err := lookup.ParseQuery(strings.Join(cmd.Args().Slice(), " "))
			if err != nil {
				return err
			}
			up := simownership.NewClient(cmd.String("endpoint"), cmd.Duration("timeout"), nil)
			env, err := lookup.NewService(up).Search(ctx, q)
			if err != nil {
				return err
			}
			var v any = env
			if cmd.Bool("summary") {
				if env.Summary == nil {
					return errors.New("upstream response has no result records")
				}
				v = env.Summary
			}
			return render(out, format, v)
		},
	}
}

// render：YAML 输出先转为通用结构，保证 api_response 按对象而不是字节序列展开
func render(w io.Writer, format string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format == "json" {
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plain(doc)); err != nil {
		return err
	}
	return enc.Close()
}

// plain：json.Number 转为整数或浮点，避免在 YAML 中被当作字符串加引号
func plain(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = plain(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = plain(e)
		}
		return x
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	}
	return v
}
