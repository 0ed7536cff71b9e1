package domain

// Outcome is the result of a membership operation. Callers branch on the
// value, never on the message text.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeCreated
	OutcomeAdded
	OutcomeAlreadyExists
	OutcomeMissingInput
	OutcomeNoBasket
	OutcomeRemoved
	OutcomeRemovedBasketDeleted
	OutcomeNotFound
	// OutcomeNotFoundBasketPruned is only reachable when a stored basket
	// already has no items, which the save path never produces. Candidate for
	// removal once it is confirmed nothing else writes empty baskets.
	OutcomeNotFoundBasketPruned
	OutcomeStoreUnavailable
)

var outcomeNames = map[Outcome]string{
	OutcomeUnknown:              "unknown",
	OutcomeCreated:              "created",
	OutcomeAdded:                "added",
	OutcomeAlreadyExists:        "already_exists",
	OutcomeMissingInput:         "missing_input",
	OutcomeNoBasket:             "no_basket",
	OutcomeRemoved:              "removed",
	OutcomeRemovedBasketDeleted: "removed_basket_deleted",
	OutcomeNotFound:             "not_found",
	OutcomeNotFoundBasketPruned: "not_found_basket_pruned",
	OutcomeStoreUnavailable:     "store_unavailable",
}

var outcomeMessages = map[Outcome]string{
	OutcomeCreated:              "Added Image to basket",
	OutcomeAdded:                "Added Image to basket",
	OutcomeAlreadyExists:        "Image already exists!",
	OutcomeMissingInput:         "Are you sure you added a Image?",
	OutcomeNoBasket:             "No basket exist, nothing to delete",
	OutcomeRemoved:              "Image was removed! Other images are still in basket",
	OutcomeRemovedBasketDeleted: "Image was removed and basket was deleted!",
	OutcomeNotFound:             "Didn't find a image to remove",
	OutcomeNotFoundBasketPruned: "Didn't find a image to remove",
	OutcomeStoreUnavailable:     "Basket store is unavailable",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return outcomeNames[OutcomeUnknown]
}

// Message is the human-readable text for o.
func (o Outcome) Message() string {
	return outcomeMessages[o]
}

// Changed reports whether the operation wrote to the store.
func (o Outcome) Changed() bool {
	switch o {
	case OutcomeCreated, OutcomeAdded, OutcomeRemoved,
		OutcomeRemovedBasketDeleted, OutcomeNotFoundBasketPruned:
		return true
	}
	return false
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
