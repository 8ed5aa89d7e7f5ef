package models

import "github.com/iudanet/boardsync/pkg/api"

// ObjectToAPI конвертирует модель в wire-формат board-протокола
func ObjectToAPI(o *CanvasObject) api.Object {
	wire := api.Object{
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
		ID:         o.ID,
		Type:       string(o.Type),
		Color:      o.Color,
		Text:       o.Text,
		CreatedBy:  o.CreatedBy,
		ModifiedBy: o.ModifiedBy,
		LockedBy:   o.LockedBy,
		X:          o.X,
		Y:          o.Y,
		Width:      o.Width,
		Height:     o.Height,
		Radius:     o.Radius,
		Rotation:   o.Rotation,
		Version:    o.Version,
	}
	if o.LockedAt != nil {
		lockedAt := *o.LockedAt
		wire.LockedAt = &lockedAt
	}
	return wire
}

// ObjectFromAPI конвертирует wire-формат обратно в модель
func ObjectFromAPI(wire api.Object) *CanvasObject {
	obj := &CanvasObject{
		CreatedAt:  wire.CreatedAt,
		UpdatedAt:  wire.UpdatedAt,
		ID:         wire.ID,
		Type:       ObjectType(wire.Type),
		Color:      wire.Color,
		Text:       wire.Text,
		CreatedBy:  wire.CreatedBy,
		ModifiedBy: wire.ModifiedBy,
		LockedBy:   wire.LockedBy,
		X:          wire.X,
		Y:          wire.Y,
		Width:      wire.Width,
		Height:     wire.Height,
		Radius:     wire.Radius,
		Rotation:   wire.Rotation,
		Version:    wire.Version,
	}
	if wire.LockedAt != nil {
		lockedAt := *wire.LockedAt
		obj.LockedAt = &lockedAt
	}
	return obj
}

// ObjectsToAPI конвертирует снапшот доски в wire-формат
func ObjectsToAPI(objects []*CanvasObject) []api.Object {
	wire := make([]api.Object, 0, len(objects))
	for _, o := range objects {
		wire = append(wire, ObjectToAPI(o))
	}
	return wire
}

// ObjectsFromAPI конвертирует wire-снапшот в модели
func ObjectsFromAPI(wire []api.Object) []*CanvasObject {
	objects := make([]*CanvasObject, 0, len(wire))
	for _, w := range wire {
		objects = append(objects, ObjectFromAPI(w))
	}
	return objects
}
