package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/Raj-venom/scrap-dai-client/internal/draft"
	"github.com/Raj-venom/scrap-dai-client/internal/media"
)

// Multipart field names of the order submission.
const (
	fieldPickUpDate      = "pickUpDate"
	fieldPickUpTime      = "pickUpTime"
	fieldEstimatedAmount = "estimatedAmount"
	fieldPaymentMethod   = "paymentMethod"
	fieldOrderItems      = "orderItems"
	fieldPickupAddress   = "pickupAddress"
	fieldScrapImages     = "scrapImages"
)

// encodeOrder renders p as a buffered multipart body so the request can be
// replayed after a credential refresh.
func encodeOrder(p *draft.Payload, opts media.Options) (io.Reader, string, error) {
	if p == nil {
		return nil, "", &Error{Kind: KindValidation, Message: "payload is required"}
	}
	items, err := p.OrderItemsJSON()
	if err != nil {
		return nil, "", &Error{Kind: KindValidation, Message: "encode order items", Err: err}
	}
	addr, err := p.PickupAddressJSON()
	if err != nil {
		return nil, "", &Error{Kind: KindValidation, Message: "encode pickup address", Err: err}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{fieldPickUpDate, p.PickUpDate},
		{fieldPickUpTime, string(p.PickUpTime)},
		{fieldEstimatedAmount, p.EstimatedAmountString()},
		{fieldPaymentMethod, string(p.PaymentMethod)},
		{fieldOrderItems, items},
		{fieldPickupAddress, addr},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", &Error{Kind: KindValidation, Message: "write " + f.name, Err: err}
		}
	}

	for i, img := range p.Images {
		prepared, err := media.Prepare(localPath(img.LocalURI), opts)
		if err != nil {
			return nil, "", &Error{Kind: KindValidation, Message: fmt.Sprintf("prepare image %d", i+1), Err: err}
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldScrapImages, prepared.Filename))
		h.Set("Content-Type", prepared.MimeType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", &Error{Kind: KindValidation, Message: "create image part", Err: err}
		}
		if _, err := part.Write(prepared.Data); err != nil {
			return nil, "", &Error{Kind: KindValidation, Message: "write image part", Err: err}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", &Error{Kind: KindValidation, Message: "close multipart body", Err: err}
	}
	return bytes.NewReader(buf.Bytes()), w.FormDataContentType(), nil
}

// localPath strips a file:// scheme from a device URI.
func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
