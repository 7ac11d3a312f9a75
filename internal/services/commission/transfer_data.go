package commission

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "finops/internal/errors"
	"finops/internal/models"
	"finops/internal/validation"
)

// TransferData is the method-specific payload of a transfer. Exactly one
// variant exists per TransferMethod.
type TransferData interface {
	Method() models.TransferMethod
	toJSON() models.JSON
}

// BalanceCreditData accompanies a credit to the recipient's balance.
type BalanceCreditData struct {
	Note string `json:"note,omitempty" validate:"max=500"`
}

func (BalanceCreditData) Method() models.TransferMethod { return models.TransferMethodBalanceCredit }

func (d BalanceCreditData) toJSON() models.JSON {
	if d.Note == "" {
		return nil
	}
	return models.JSON{"note": d.Note}
}

// ExternalPayoutData identifies a payout executed outside the ledger.
type ExternalPayoutData struct {
	Provider         string `json:"provider" validate:"required,max=100"`
	AccountReference string `json:"account_reference" validate:"required,max=100"`
}

func (ExternalPayoutData) Method() models.TransferMethod { return models.TransferMethodExternal }

func (d ExternalPayoutData) toJSON() models.JSON {
	return models.JSON{"provider": d.Provider, "account_reference": d.AccountReference}
}

// DecodeTransferData turns the free-form payload into the variant required
// by method. Unknown fields and missing required fields are rejected.
func DecodeTransferData(method models.TransferMethod, raw map[string]interface{}) (TransferData, error) {
	switch method {
	case models.TransferMethodBalanceCredit:
		var d BalanceCreditData
		if err := decodeStrict(raw, &d); err != nil {
			return nil, err
		}
		if err := validation.Struct(d); err != nil {
			return nil, err
		}
		return d, nil
	case models.TransferMethodExternal:
		var d ExternalPayoutData
		if err := decodeStrict(raw, &d); err != nil {
			return nil, err
		}
		if err := validation.Struct(d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, apperrors.InvalidArgument(fmt.Sprintf("unsupported transfer method %q", method))
	}
}

func decodeStrict(raw map[string]interface{}, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return apperrors.InvalidArgument("transfer_data is not valid JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.InvalidArgument("invalid transfer_data: " + err.Error())
	}
	return nil
}
