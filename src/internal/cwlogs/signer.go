// FILE: logship/src/internal/cwlogs/signer.go
package cwlogs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/valyala/fasthttp"
)

const signingService = "logs"

// Host is taken from the URL by the signer
var signedHeaders = []string{"Content-Type", targetHeader}

// requestSigner adds SigV4 headers to outgoing fasthttp requests
type requestSigner struct {
	creds  aws.Credentials
	region string
	signer *v4.Signer
	now    func() time.Time
}

func newRequestSigner(creds aws.Credentials, region string) *requestSigner {
	return &requestSigner{
		creds:  creds,
		region: region,
		signer: v4.NewSigner(),
		now:    time.Now,
	}
}

// sign computes the signature over a net/http mirror of req and copies the
// resulting headers back.
func (s *requestSigner) sign(ctx context.Context, req *fasthttp.Request) error {
	mirror, err := http.NewRequestWithContext(ctx, string(req.Header.Method()), req.URI().String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build signing request: %w", err)
	}
	for _, key := range signedHeaders {
		if v := req.Header.Peek(key); len(v) > 0 {
			mirror.Header.Set(key, string(v))
		}
	}

	sum := sha256.Sum256(req.Body())
	payloadHash := hex.EncodeToString(sum[:])

	if err := s.signer.SignHTTP(ctx, s.creds, mirror, payloadHash, signingService, s.region, s.now()); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	for _, key := range []string{"Authorization", "X-Amz-Date", "X-Amz-Security-Token"} {
		if v := mirror.Header.Get(key); v != "" {
			req.Header.Set(key, v)
		}
	}
	return nil
}
