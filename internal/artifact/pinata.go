package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"go.uber.org/zap"
)

const defaultPinataURL = "https://api.pinata.cloud"

// PinataStore pins artifacts to IPFS through Pinata. A URI is returned only
// once Pinata has acknowledged the pin.
type PinataStore struct {
	BaseURL string
	JWT     string
	// Gateway, when set, turns a CID into an https URL; otherwise ipfs://<cid>.
	Gateway string
	Client  *http.Client
	log     *zap.Logger
}

func NewPinataStore(jwt, gateway string, log *zap.Logger) *PinataStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PinataStore{
		BaseURL: defaultPinataURL,
		JWT:     jwt,
		Gateway: gateway,
		Client:  &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

type pinataMetadata struct {
	Name string `json:"name"`
}

type pinJSONReq struct {
	Content  any            `json:"pinataContent"`
	Metadata pinataMetadata `json:"pinataMetadata"`
}

type pinResp struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func (s *PinataStore) SaveJSON(ctx context.Context, name string, v any) (string, error) {
	name, err := cleanName("pin json", name)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(pinJSONReq{Content: v, Metadata: pinataMetadata{Name: name + ".json"}})
	if err != nil {
		return "", faults.E(faults.Internal, "pin json", err)
	}
	return s.pin(ctx, "pin json", "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(b))
}

func (s *PinataStore) SaveImage(ctx context.Context, data []byte, name string) (string, error) {
	name, err := cleanName("pin image", name)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", faults.Errorf(faults.Validation, "pin image", "no image data for %s", name)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s.png"`, name))
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", faults.E(faults.Internal, "pin image", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", faults.E(faults.Internal, "pin image", err)
	}
	meta, _ := json.Marshal(pinataMetadata{Name: name + ".png"})
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", faults.E(faults.Internal, "pin image", err)
	}
	if err := mw.Close(); err != nil {
		return "", faults.E(faults.Internal, "pin image", err)
	}
	return s.pin(ctx, "pin image", "/pinning/pinFileToIPFS", mw.FormDataContentType(), &body)
}

func (s *PinataStore) pin(ctx context.Context, op, endpoint, contentType string, body io.Reader) (string, error) {
	if strings.TrimSpace(s.JWT) == "" {
		return "", faults.E(faults.Internal, op, errors.New("pinata jwt is required"))
	}
	url := strings.TrimRight(s.BaseURL, "/") + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", faults.E(faults.Internal, op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.JWT)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", faults.E(faults.Transient, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		kind := faults.Internal
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			kind = faults.Transient
		}
		return "", faults.Errorf(kind, op, "pinata status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded pinResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", faults.E(faults.Internal, op, err)
	}
	if decoded.IpfsHash == "" {
		return "", faults.Errorf(faults.Internal, op, "pinata returned no cid")
	}
	s.log.Info("artifact pinned", zap.String("cid", decoded.IpfsHash), zap.Int64("size", decoded.PinSize))
	return s.uri(decoded.IpfsHash), nil
}

func (s *PinataStore) uri(cid string) string {
	gw := strings.TrimRight(strings.TrimSpace(s.Gateway), "/")
	if gw == "" {
		return "ipfs://" + cid
	}
	if !strings.Contains(gw, "://") {
		gw = "https://" + gw
	}
	return gw + "/ipfs/" + cid
}
