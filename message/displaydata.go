package message

import "encoding/json"

// MimeType is the closed set of mimetypes DisplayData may carry.
type MimeType string

const (
	MimeTextPlain       MimeType = "text/plain"
	MimeTextHTML        MimeType = "text/html"
	MimePNG             MimeType = "image/png"
	MimeJPEG            MimeType = "image/jpeg"
	MimeSVG             MimeType = "image/svg+xml"
	MimeLatex           MimeType = "text/latex"
	MimeJavascript      MimeType = "application/javascript"
)

// ImageDimensions is the per-mime metadata emitted for image/png and
// image/jpeg entries.
type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DisplayData is a mapping from MimeType to encoded representation, plus
// optional image metadata for the image mimetypes. It is encoded on the
// wire as two sibling fields, "data" and "metadata".
type DisplayData struct {
	Data      map[MimeType]string
	ImageMeta map[MimeType]ImageDimensions
}

// NewDisplayData returns an empty DisplayData ready to be populated with
// Set/SetImage.
func NewDisplayData() DisplayData {
	return DisplayData{Data: map[MimeType]string{}, ImageMeta: map[MimeType]ImageDimensions{}}
}

// Set adds a plain (non-image) mimetype entry.
func (d *DisplayData) Set(mime MimeType, encoded string) {
	if d.Data == nil {
		d.Data = map[MimeType]string{}
	}
	d.Data[mime] = encoded
}

// SetImage adds an image/png or image/jpeg entry along with its
// dimensions.
func (d *DisplayData) SetImage(mime MimeType, encoded string, dims ImageDimensions) {
	d.Set(mime, encoded)
	if d.ImageMeta == nil {
		d.ImageMeta = map[MimeType]ImageDimensions{}
	}
	d.ImageMeta[mime] = dims
}

func (d DisplayData) dataMap() map[string]interface{} {
	out := make(map[string]interface{}, len(d.Data))
	for mime, v := range d.Data {
		out[string(mime)] = v
	}
	return out
}

func (d DisplayData) metadataMap() map[string]interface{} {
	out := make(map[string]interface{}, len(d.ImageMeta))
	for mime, dims := range d.ImageMeta {
		out[string(mime)] = dims
	}
	return out
}

// marshalInto encodes d's data/metadata siblings into dst.
func (d DisplayData) marshalInto(dst map[string]interface{}) {
	dst["data"] = d.dataMap()
	dst["metadata"] = d.metadataMap()
}

func unmarshalDisplayData(dataRaw, metadataRaw json.RawMessage) (DisplayData, error) {
	d := NewDisplayData()

	if len(dataRaw) > 0 {
		var raw map[string]string
		if err := json.Unmarshal(dataRaw, &raw); err != nil {
			return DisplayData{}, err
		}
		for k, v := range raw {
			d.Data[MimeType(k)] = v
		}
	}

	if len(metadataRaw) > 0 {
		var raw map[string]ImageDimensions
		if err := json.Unmarshal(metadataRaw, &raw); err != nil {
			return DisplayData{}, err
		}
		for k, v := range raw {
			d.ImageMeta[MimeType(k)] = v
		}
	}

	return d, nil
}
