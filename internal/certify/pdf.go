package certify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	qrcode "github.com/skip2/go-qrcode"
)

// PDFRenderer writes the PDF certificate artifact.
type PDFRenderer interface {
	Render(path string, payload map[string]any, explorerURL string) error
}

// pdfcpuRenderer renders the certificate through pdfcpu's JSON page
// description, with a QR code image encoding the explorer lookup URL.
type pdfcpuRenderer struct{}

func (r *pdfcpuRenderer) Render(path string, payload map[string]any, explorerURL string) error {
	qrPath := strings.TrimSuffix(path, ".pdf") + "_qr.png"
	if err := qrcode.WriteFile(explorerURL, qrcode.Medium, 256, qrPath); err != nil {
		return fmt.Errorf("encode explorer qr: %w", err)
	}

	decl := map[string]any{
		"pages": map[string]any{
			"1": map[string]any{
				"content": map[string]any{
					"text": []map[string]any{
						{
							"value":   "Blockchain Notarization Certificate",
							"anchor":  "tc",
							"dy":      -60,
							"font":    map[string]any{"name": "Helvetica-Bold", "size": 18},
							"fillCol": "#000000",
						},
						{
							"value":   detailBlock(payload),
							"anchor":  "c",
							"font":    map[string]any{"name": "Helvetica", "size": 10},
							"fillCol": "#000000",
						},
						{
							"value":   "Scan to verify: " + explorerURL,
							"anchor":  "bc",
							"dy":      40,
							"font":    map[string]any{"name": "Helvetica", "size": 8},
							"fillCol": "#444444",
						},
					},
					"imageboxes": []map[string]any{
						{
							"src":    qrPath,
							"anchor": "bc",
							"dy":     70,
							"width":  120,
						},
					},
				},
			},
		},
	}

	data, err := json.Marshal(decl)
	if err != nil {
		return fmt.Errorf("encode pdf declaration: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf file: %w", err)
	}
	defer f.Close()

	if err := api.Create(nil, bytes.NewReader(data), f, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// detailBlock flattens the certificate payload into stable, readable
// lines. The signature is elided to its prefix; verification happens
// against the JSON artifact.
func detailBlock(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := fmt.Sprintf("%v", payload[k])
		if k == "signature" || k == "public_key" {
			if len(v) > 16 {
				v = v[:16] + "..."
			}
		}
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	return b.String()
}
