package models

import (
	"sg-explorer/utils/errors"
	"time"
)

type Itinerary struct {
	ID        string          `json:"id" bson:"_id"`
	OwnerID   string          `json:"owner_id" bson:"owner_id"`
	Name      string          `json:"name" bson:"name"`
	Items     []ItineraryItem `json:"items" bson:"items"`
	Version   int64           `json:"version" bson:"version"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" bson:"updated_at"`
}

type ItineraryItem struct {
	POIID   string    `json:"poi_id" bson:"poi_id"`
	Checked bool      `json:"checked" bson:"checked"`
	AddedAt time.Time `json:"added_at" bson:"added_at"`
	POI     *POI      `json:"poi,omitempty" bson:"-"`
}

type ItineraryProgress struct {
	Checked int `json:"checked"`
	Total   int `json:"total"`
}

func (it *Itinerary) indexOf(poiID string) int {
	for i, item := range it.Items {
		if item.POIID == poiID {
			return i
		}
	}
	return -1
}

// AddItem appends a POI to the end of the itinerary.
func (it *Itinerary) AddItem(poiID string, now time.Time) error {
	if it.indexOf(poiID) >= 0 {
		return errors.ErrConflict.WithDetails("poi %s is already in the itinerary", poiID)
	}
	it.Items = append(it.Items, ItineraryItem{POIID: poiID, AddedAt: now})
	return nil
}

func (it *Itinerary) RemoveItem(poiID string) error {
	i := it.indexOf(poiID)
	if i < 0 {
		return errors.ErrNotFound.WithDetails("poi %s is not in the itinerary", poiID)
	}
	it.Items = append(it.Items[:i], it.Items[i+1:]...)
	return nil
}

// MoveItem moves a POI to position to, shifting the items in between.
// Out of range positions are clamped to the ends of the list.
func (it *Itinerary) MoveItem(poiID string, to int) error {
	from := it.indexOf(poiID)
	if from < 0 {
		return errors.ErrNotFound.WithDetails("poi %s is not in the itinerary", poiID)
	}
	to = max(0, min(to, len(it.Items)-1))
	if from == to {
		return nil
	}
	item := it.Items[from]
	if from < to {
		copy(it.Items[from:to], it.Items[from+1:to+1])
	} else {
		copy(it.Items[to+1:from+1], it.Items[to:from])
	}
	it.Items[to] = item
	return nil
}

func (it *Itinerary) SetChecked(poiID string, checked bool) error {
	i := it.indexOf(poiID)
	if i < 0 {
		return errors.ErrNotFound.WithDetails("poi %s is not in the itinerary", poiID)
	}
	it.Items[i].Checked = checked
	return nil
}

func (it *Itinerary) Progress() ItineraryProgress {
	p := ItineraryProgress{Total: len(it.Items)}
	for _, item := range it.Items {
		if item.Checked {
			p.Checked++
		}
	}
	return p
}

// POIIDs returns the POI ids in itinerary order.
func (it *Itinerary) POIIDs() []string {
	ids := make([]string, len(it.Items))
	for i, item := range it.Items {
		ids[i] = item.POIID
	}
	return ids
}
