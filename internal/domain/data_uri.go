package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DataURI は、`data:<mime>;base64,<payload>` 形式の文字列を分解した値オブジェクトです
type DataURI struct {
	MIME string
	Data []byte
}

// ParseDataURI は、data URIを解析してバイト列を取り出します
// maxBytes が正の場合、デコード後のサイズがそれを超えると ErrImageTooLarge を返します
func ParseDataURI(uri string, maxBytes int) (DataURI, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "data:") {
		return DataURI{}, fmt.Errorf("%w: data: で始まっていません", ErrInvalidDataURI)
	}

	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return DataURI{}, fmt.Errorf("%w: ペイロードの区切りがありません", ErrInvalidDataURI)
	}

	header := uri[len("data:"):comma]
	payload := uri[comma+1:]

	params := strings.Split(header, ";")
	mime := strings.ToLower(strings.TrimSpace(params[0]))
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return DataURI{}, fmt.Errorf("%w: base64エンコードではありません", ErrInvalidDataURI)
	}

	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+3 {
		return DataURI{}, fmt.Errorf("%w: 最大 %d バイト", ErrImageTooLarge, maxBytes)
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return DataURI{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return DataURI{}, fmt.Errorf("%w: 最大 %d バイト", ErrImageTooLarge, maxBytes)
	}

	return DataURI{MIME: mime, Data: data}, nil
}

// decodeBase64 は、パディングの有無や空白を許容してbase64をデコードします
func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)

	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	if data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(payload)
}

// EncodeDataURI は、バイト列からdata URIを作成します
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ImageBuffer は、data URIからImageBufferを作成します
func (d DataURI) ImageBuffer(filename string) ImageBuffer {
	return NewImageBuffer(d.Data, d.MIME, filename)
}
