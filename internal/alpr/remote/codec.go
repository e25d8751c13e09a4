package remote

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
)

// Message field names shared with the model service.
const (
	fieldFrameIndex = "frame_index"
	fieldImage      = "image_png"
	fieldDetections = "detections"
	fieldCandidates = "candidates"
)

func encodeImage(frameIndex int, img *frames.Image) (*structpb.Struct, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return structpb.NewStruct(map[string]interface{}{
		fieldFrameIndex: float64(frameIndex),
		fieldImage:      base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

func decodeImage(s *structpb.Struct) (int, *frames.Image, error) {
	fields := s.GetFields()
	raw, err := base64.StdEncoding.DecodeString(fields[fieldImage].GetStringValue())
	if err != nil {
		return 0, nil, fmt.Errorf("decode image field: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("decode png: %w", err)
	}
	return int(fields[fieldFrameIndex].GetNumberValue()), frames.FromImage(img), nil
}

func encodeDetections(dets []alpr.Detection) (*structpb.Struct, error) {
	list := make([]interface{}, 0, len(dets))
	for _, d := range dets {
		list = append(list, map[string]interface{}{
			"x1":       d.Box.X1,
			"y1":       d.Box.Y1,
			"x2":       d.Box.X2,
			"y2":       d.Box.Y2,
			"score":    d.Score,
			"class_id": float64(d.ClassID),
		})
	}
	return structpb.NewStruct(map[string]interface{}{fieldDetections: list})
}

func decodeDetections(s *structpb.Struct) []alpr.Detection {
	values := s.GetFields()[fieldDetections].GetListValue().GetValues()
	out := make([]alpr.Detection, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		out = append(out, alpr.Detection{
			Box: alpr.NewBox(
				f["x1"].GetNumberValue(), f["y1"].GetNumberValue(),
				f["x2"].GetNumberValue(), f["y2"].GetNumberValue(),
			),
			Score:   f["score"].GetNumberValue(),
			ClassID: int(f["class_id"].GetNumberValue()),
		})
	}
	return out
}

func encodeCandidates(cands []alpr.TextCandidate) (*structpb.Struct, error) {
	list := make([]interface{}, 0, len(cands))
	for _, c := range cands {
		poly := make([]interface{}, 0, len(c.Polygon))
		for _, p := range c.Polygon {
			poly = append(poly, []interface{}{float64(p.X), float64(p.Y)})
		}
		list = append(list, map[string]interface{}{
			"text":       c.Text,
			"confidence": c.Confidence,
			"polygon":    poly,
		})
	}
	return structpb.NewStruct(map[string]interface{}{fieldCandidates: list})
}

func decodeCandidates(s *structpb.Struct) []alpr.TextCandidate {
	values := s.GetFields()[fieldCandidates].GetListValue().GetValues()
	out := make([]alpr.TextCandidate, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		var poly []image.Point
		for _, pv := range f["polygon"].GetListValue().GetValues() {
			xy := pv.GetListValue().GetValues()
			if len(xy) != 2 {
				continue
			}
			poly = append(poly, image.Pt(int(xy[0].GetNumberValue()), int(xy[1].GetNumberValue())))
		}
		out = append(out, alpr.TextCandidate{
			Polygon:    poly,
			Text:       f["text"].GetStringValue(),
			Confidence: f["confidence"].GetNumberValue(),
		})
	}
	return out
}
