package dataservice

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload is a file attached to a form submission, such as the F2508
// document of a RIDDOR-notifiable incident.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type encodedBody struct {
	contentType string
	data        []byte
}

func hasUploads(values map[string]any) bool {
	for _, v := range values {
		switch v.(type) {
		case Upload, *Upload:
			return true
		}
	}
	return false
}

// encodeMultipart writes values in the shape a Django form parser expects:
// booleans as "true"/"false", nil values omitted, lists as repeated parts.
func encodeMultipart(values map[string]any) (encodedBody, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, key := range keys {
		if err := writePart(w, key, values[key]); err != nil {
			return encodedBody{}, fmt.Errorf("encode %s: %w", key, err)
		}
	}
	if err := w.Close(); err != nil {
		return encodedBody{}, err
	}
	return encodedBody{contentType: w.FormDataContentType(), data: buf.Bytes()}, nil
}

func writePart(w *multipart.Writer, key string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case *Upload:
		if v == nil {
			return nil
		}
		return writeFile(w, key, *v)
	case Upload:
		return writeFile(w, key, v)
	case bool:
		return w.WriteField(key, strconv.FormatBool(v))
	case string:
		return w.WriteField(key, v)
	case []string:
		for _, item := range v {
			if err := w.WriteField(key, item); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, item := range v {
			if err := writePart(w, key, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return w.WriteField(key, fmt.Sprint(v))
	}
}

func writeFile(w *multipart.Writer, key string, upload Upload) error {
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(key), quoteEscaper.Replace(upload.Filename)))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(upload.Data)
	return err
}
