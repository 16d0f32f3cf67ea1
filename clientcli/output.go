package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sagarc03/bucketfs"
)

// Formatter formats results for output.
type Formatter interface {
	FormatSync(w io.Writer, results []SyncResult) error
	FormatDownload(w io.Writer, result *DownloadResult) error
	FormatDelete(w io.Writer, results []DeleteResult) error
	FormatList(w io.Writer, result *ListResult) error
	FormatURL(w io.Writer, key, url string) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatSync prints failures always, uploads unless quiet, and a summary line.
func (f *HumanFormatter) FormatSync(w io.Writer, results []SyncResult) error {
	var uploaded, skipped, failed int
	var total int64
	for i := range results {
		r := &results[i]
		switch r.Action {
		case SyncFailed:
			failed++
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
		case SyncUploaded:
			uploaded++
			total += r.Size
			if !f.Quiet {
				_, _ = fmt.Fprintf(w, "Uploaded: %s -> %s (%s)\n", r.LocalPath, r.Key, formatSize(r.Size))
			}
		case SyncSkipped:
			skipped++
		}
	}
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "\n%d uploaded (%s), %d up to date, %d failed\n", uploaded, formatSize(total), skipped, failed)
	}
	return nil
}

// FormatDownload formats download result as human-readable text.
func (f *HumanFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	if f.Quiet || result.LocalPath == "-" {
		return nil
	}
	_, _ = fmt.Fprintf(w, "Downloaded: %s -> %s (%s)\n", result.Key, result.LocalPath, formatSize(result.Size))
	return nil
}

// FormatDelete formats delete results as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.Key, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Deleted: %s\n", r.Key)
		}
	}
	return nil
}

// FormatList formats list results as human-readable text.
func (f *HumanFormatter) FormatList(w io.Writer, result *ListResult) error {
	if len(result.Items) == 0 && len(result.Prefixes) == 0 {
		_, _ = fmt.Fprintln(w, "No objects found")
		return nil
	}

	maxKeyLen := 3 // "KEY"
	for i := range result.Items {
		if len(result.Items[i].Key) > maxKeyLen {
			maxKeyLen = len(result.Items[i].Key)
		}
	}
	for _, p := range result.Prefixes {
		if len(p) > maxKeyLen {
			maxKeyLen = len(p)
		}
	}
	if maxKeyLen > 60 {
		maxKeyLen = 60
	}

	_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n", maxKeyLen, "KEY", "SIZE", "MODIFIED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", maxKeyLen), strings.Repeat("-", 10), strings.Repeat("-", 19))

	for _, p := range result.Prefixes {
		_, _ = fmt.Fprintf(w, "%-*s  %10s\n", maxKeyLen, truncate(p, maxKeyLen), "DIR")
	}
	for i := range result.Items {
		item := &result.Items[i]
		_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n",
			maxKeyLen,
			truncate(item.Key, maxKeyLen),
			formatSize(item.Size),
			item.LastModified.UTC().Format("2006-01-02 15:04:05"),
		)
	}

	_, _ = fmt.Fprintf(w, "\n%d object(s) (%s total)\n", len(result.Items), formatSize(result.TotalSize()))

	if result.NextMarker != "" {
		_, _ = fmt.Fprintf(w, "Next page: use --marker %q\n", result.NextMarker)
	}

	return nil
}

// FormatURL prints the URL alone so it can be piped.
func (f *HumanFormatter) FormatURL(w io.Writer, _ string, url string) error {
	_, _ = fmt.Fprintln(w, url)
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatSync formats sync results as JSON.
func (f *JSONFormatter) FormatSync(w io.Writer, results []SyncResult) error {
	type jsonResult struct {
		LocalPath string `json:"local_path"`
		Key       string `json:"key"`
		Action    string `json:"action"`
		Size      int64  `json:"size_bytes"`
		Error     string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}
	for i := range results {
		r := &results[i]
		jr := jsonResult{
			LocalPath: r.LocalPath,
			Key:       r.Key,
			Action:    string(r.Action),
			Size:      r.Size,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatDownload formats download result as JSON.
func (f *JSONFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	return writeJSON(w, result)
}

// FormatDelete formats delete results as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		Key     string `json:"key"`
		Deleted bool   `json:"deleted"`
		Error   string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		jr := jsonResult{
			Key:     r.Key,
			Deleted: r.Deleted,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatList formats list results as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, result *ListResult) error {
	return writeJSON(w, result)
}

// FormatURL formats a URL as JSON.
func (f *JSONFormatter) FormatURL(w io.Writer, key, url string) error {
	output := struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}{
		Key: key,
		URL: url,
	}
	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	nameLen, bucketLen, endpointLen := 4, 6, 8 // header widths
	for i := range profiles {
		nameLen = max(nameLen, len(profiles[i].Name))
		bucketLen = max(bucketLen, len(profiles[i].Bucket))
		endpointLen = max(endpointLen, len(profiles[i].Endpoint))
	}
	nameLen = min(nameLen, 20)
	bucketLen = min(bucketLen, 30)
	endpointLen = min(endpointLen, 40)

	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %-*s  %s\n", nameLen, "NAME", bucketLen, "BUCKET", endpointLen, "ENDPOINT", "ACCESS KEY")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s  %s\n",
		strings.Repeat("-", nameLen), strings.Repeat("-", bucketLen), strings.Repeat("-", endpointLen), strings.Repeat("-", 20))

	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %-*s  %s\n",
			marker,
			nameLen, truncate(p.Name, nameLen),
			bucketLen, truncate(p.Bucket, bucketLen),
			endpointLen, truncate(p.Endpoint, endpointLen),
			maskSecret(p.AccessKey, showSecrets),
		)
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:           %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint:       %s\n", profile.Endpoint)
	_, _ = fmt.Fprintf(w, "Bucket:         %s\n", profile.Bucket)
	_, _ = fmt.Fprintf(w, "Calling format: %s\n", callingFormatName(profile.CallingFormat))
	_, _ = fmt.Fprintf(w, "Secure:         %t\n", profile.Secure)
	_, _ = fmt.Fprintf(w, "Access Key:     %s\n", maskSecret(profile.AccessKey, showSecrets))
	_, _ = fmt.Fprintf(w, "Secret Key:     %s\n", maskSecret(profile.SecretKey, showSecrets))
	return nil
}

type jsonProfile struct {
	Name          string `json:"name"`
	Endpoint      string `json:"endpoint"`
	Bucket        string `json:"bucket"`
	CallingFormat string `json:"calling_format"`
	Secure        bool   `json:"secure"`
	AccessKey     string `json:"access_key"`
	SecretKey     string `json:"secret_key"`
	Default       bool   `json:"default"`
}

func newJSONProfile(p *Profile, isDefault, showSecrets bool) jsonProfile {
	return jsonProfile{
		Name:          p.Name,
		Endpoint:      p.Endpoint,
		Bucket:        p.Bucket,
		CallingFormat: callingFormatName(p.CallingFormat),
		Secure:        p.Secure,
		AccessKey:     maskSecret(p.AccessKey, showSecrets),
		SecretKey:     maskSecret(p.SecretKey, showSecrets),
		Default:       isDefault,
	}
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		output.Profiles[i] = newJSONProfile(&profiles[i], profiles[i].Name == defaultName, showSecrets)
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	return writeJSON(w, newJSONProfile(&profile, isDefault, showSecrets))
}

// callingFormatName reports the format a profile resolves to; unparseable values are shown as-is.
func callingFormatName(s string) string {
	f, err := bucketfs.ParseCallingFormat(s)
	if err != nil {
		return s
	}
	return f.String()
}

// maskSecret masks a secret string, showing only first 4 and last 4 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
