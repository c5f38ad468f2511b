package api

import "github.com/abelbrown/codesim/internal/model"

// pageEnvelope accepts both page shapes the service has used: a nested
// "page" object, and the flat Spring Data layout with the counters next
// to "content".
type pageEnvelope[T any] struct {
	Content *[]T            `json:"content"`
	Page    *model.PageInfo `json:"page"`

	Number        *int `json:"number"`
	Size          *int `json:"size"`
	TotalElements *int `json:"totalElements"`
	TotalPages    *int `json:"totalPages"`
}

func (e pageEnvelope[T]) toPage(op string) (model.Page[T], error) {
	if e.Content == nil {
		return model.Page[T]{}, &model.MalformedResponseError{Op: op, Reason: "missing content"}
	}

	var info model.PageInfo
	switch {
	case e.Page != nil:
		info = *e.Page
	case e.Number != nil && e.TotalPages != nil:
		info = model.PageInfo{Number: *e.Number, TotalPages: *e.TotalPages}
		if e.Size != nil {
			info.Size = *e.Size
		}
		if e.TotalElements != nil {
			info.TotalElements = *e.TotalElements
		}
	default:
		return model.Page[T]{}, &model.MalformedResponseError{Op: op, Reason: "missing page info"}
	}

	if err := info.Validate(); err != nil {
		return model.Page[T]{}, &model.MalformedResponseError{Op: op, Reason: "invalid page info", Err: err}
	}
	return model.Page[T]{Content: *e.Content, Page: info}, nil
}
