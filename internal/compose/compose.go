package compose

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/xkdemo/moments/internal/domain"
	"github.com/xkdemo/moments/internal/gateway"
	"github.com/xkdemo/moments/internal/mapper"
	"github.com/xkdemo/moments/internal/media"
	"github.com/xkdemo/moments/pkg/config"
	"github.com/xkdemo/moments/pkg/formatter"
	"github.com/xkdemo/moments/pkg/logger"
	"go.uber.org/fx"
)

// Draft is a moment the user is about to publish. BodyText must be non-empty.
type Draft struct {
	AuthorID        string
	AuthorName      string
	AuthorAvatarURL *string
	BodyText        string
	Image           *media.Image
}

type Opts struct {
	fx.In

	Tables  gateway.TableStore
	Objects gateway.ObjectStore
	Media   *media.Policy
	Clock   clockwork.Clock
	Logger  logger.Logger
	Config  *config.Config
}

type Coordinator struct {
	tables  gateway.TableStore
	objects gateway.ObjectStore
	media   *media.Policy
	clock   clockwork.Clock
	logger  logger.Logger
	bucket  string
}

func New(opts Opts) *Coordinator {
	return &Coordinator{
		tables:  opts.Tables,
		objects: opts.Objects,
		media:   opts.Media,
		clock:   opts.Clock,
		logger:  opts.Logger.WithComponent("ComposeCoordinator"),
		bucket:  opts.Config.Storage.Bucket,
	}
}

// Submit uploads the draft's image, if any, and then inserts the moment. The
// returned moment is decoded from the row the gateway echoed back. There is a
// single attempt: on failure nothing is retried and an uploaded image is left in place.
func (c *Coordinator) Submit(ctx context.Context, draft Draft) (domain.Moment, error) {
	var imageURL *string
	var path string

	if draft.Image != nil {
		url, p, err := c.upload(ctx, draft)
		if err != nil {
			submissionsTotal.WithLabelValues(KindUploadFailed.String()).Inc()
			c.logger.Error("Failed to upload moment image", "author_id", draft.AuthorID, "error", err)
			return domain.Moment{}, &Error{Kind: KindUploadFailed, Err: err}
		}
		imageURL, path = &url, p
	}

	moment := domain.Moment{
		AuthorName:      draft.AuthorName,
		AuthorAvatarURL: draft.AuthorAvatarURL,
		PublishedAt:     formatter.FormatTimestamp(c.clock.Now()),
		BodyText:        draft.BodyText,
		ImageURL:        imageURL,
	}

	row, err := c.tables.Insert(ctx, gateway.TableMoments, mapper.EncodeMoment(moment))
	if err == nil {
		moment, err = mapper.DecodeMoment(row)
	}
	if err != nil {
		submissionsTotal.WithLabelValues(KindPersistFailed.String()).Inc()
		c.logger.Error("Failed to persist moment", "author_id", draft.AuthorID, "error", err)
		if path != "" {
			c.logger.Warn("Uploaded image left orphaned", "bucket", c.bucket, "path", path)
		}
		return domain.Moment{}, &Error{Kind: KindPersistFailed, Err: err}
	}

	submissionsTotal.WithLabelValues("ok").Inc()
	c.logger.Info("Moment published", "author_id", draft.AuthorID, "with_image", imageURL != nil)
	return moment, nil
}

func (c *Coordinator) upload(ctx context.Context, draft Draft) (string, string, error) {
	img, err := c.media.Validate(*draft.Image)
	if err != nil {
		return "", "", err
	}

	path := c.media.MomentPath(draft.AuthorID, img)
	if err := c.objects.Upload(ctx, c.bucket, path, img.Data, img.ContentType); err != nil {
		return "", "", err
	}
	return c.objects.PublicURL(c.bucket, path), path, nil
}
