package orderevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/digimenu/checkoutflow/lib/myerrors"
	"github.com/digimenu/checkoutflow/lib/myevents"
)

const (
	TopicName            = "order"
	orderSubmittedName   = TopicName + ".submitted"
	submissionFailedName = TopicName + ".submissionFailed"
)

type OrderEventService interface {
	Subscribe(c context.Context) error
	OnOrderSubmitted(c context.Context, topic string, event OrderSubmitted) error
	OnOrderSubmissionFailed(c context.Context, topic string, event OrderSubmissionFailed) error
}

func DispatchEvent(c context.Context, reader io.Reader, service OrderEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case orderSubmittedName:
		{
			event := OrderSubmitted{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnOrderSubmitted(c, envelope.Topic, event)
		}
	case submissionFailedName:
		{
			event := OrderSubmissionFailed{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnOrderSubmissionFailed(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("%s", envelope.EventTypeName))
	}
}

type OrderSubmitted struct {
	SessionUID string
	StoreUID   string
	OrderUID   string
}

func (e OrderSubmitted) GetEventTypeName() string {
	return orderSubmittedName
}

func (e OrderSubmitted) GetAggregateName() string {
	return e.SessionUID
}

type OrderSubmissionFailed struct {
	SessionUID string
	StoreUID   string
	OrderUID   string
	Reason     string
}

func (e OrderSubmissionFailed) GetEventTypeName() string {
	return submissionFailedName
}

func (e OrderSubmissionFailed) GetAggregateName() string {
	return e.SessionUID
}
