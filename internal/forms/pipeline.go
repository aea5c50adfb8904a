package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/internal/media"
	"github.com/goliatone/go-sitecms/internal/ratelimit"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

const (
	MaxFields       = 50
	MaxPayloadBytes = 100000
	MaxValueLength  = 10000

	// FileValuePrefix marks a submission value that lists media identifiers.
	FileValuePrefix = "files:"

	formField        = "form"
	multipartMemory  = 32 << 20
	multipartContent = "multipart/form-data"
)

// AllowedFileTypes is the upload allow-list.
var AllowedFileTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

// Request is one raw submission as it arrived over HTTP.
type Request struct {
	ClientKey   string
	Locale      string
	ContentType string
	Body        io.Reader
}

// File is one uploaded file.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (f File) Size() int64 { return int64(len(f.Data)) }

// Input is the parsed submission both payload formats converge on.
type Input struct {
	FormID uuid.UUID
	Locale string
	Values []FieldValue
	Files  map[string][]File
}

type PipelineOption func(*Pipeline)

func WithLimiter(limiter ratelimit.Limiter) PipelineOption {
	return func(p *Pipeline) {
		p.limiter = limiter
	}
}

func WithMediaStore(store media.Store) PipelineOption {
	return func(p *Pipeline) {
		p.media = store
	}
}

func WithPipelineClock(clock func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if clock != nil {
			p.now = clock
		}
	}
}

func WithPipelineLogger(logger interfaces.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMarkupStripping removes HTML tags from submitted text.
func WithMarkupStripping() PipelineOption {
	return func(p *Pipeline) {
		p.policy = bluemonday.StripTagsPolicy()
	}
}

// WithContentSniffing checks file bytes against the allow-list in addition
// to the declared content type.
func WithContentSniffing() PipelineOption {
	return func(p *Pipeline) {
		p.sniff = true
	}
}

// Pipeline turns raw requests into stored submissions.
type Pipeline struct {
	forms       Service
	submissions SubmissionRepository
	locales     *i18n.Registry
	limiter     ratelimit.Limiter
	media       media.Store
	policy      *bluemonday.Policy
	sniff       bool
	now         func() time.Time
	logger      interfaces.Logger
}

func NewPipeline(forms Service, submissions SubmissionRepository, locales *i18n.Registry, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		forms:       forms,
		submissions: submissions,
		locales:     locales,
		limiter:     ratelimit.NewMemoryLimiter(ratelimit.Config{}),
		now:         time.Now,
		logger:      logging.NoOp(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit runs a request through rate limiting, parsing, form lookup, file
// validation, sanitization and schema validation, then stores the media and
// the submission. Nothing is persisted unless every step passes.
func (p *Pipeline) Submit(ctx context.Context, req Request) (*Submission, error) {
	if err := p.admit(ctx, req.ClientKey); err != nil {
		return nil, err
	}

	input, err := p.Parse(req)
	if err != nil {
		return nil, err
	}

	form, err := p.forms.Get(ctx, input.FormID, input.Locale)
	if err != nil {
		return nil, err
	}
	schema := form.Schema()

	if err := p.validateFiles(schema, input.Files); err != nil {
		return nil, err
	}
	values := withoutBlankFileValues(schema, p.sanitize(input.Values))
	if err := validateValues(schema, values, input.Files); err != nil {
		return nil, err
	}

	stored, uploads, fileValues, err := p.storeFiles(ctx, input.Files)
	if err != nil {
		return nil, err
	}

	submission := &Submission{
		ID:             uuid.New(),
		FormID:         form.FormID,
		Locale:         input.Locale,
		SubmissionData: append(fileValues, values...),
		Uploads:        uploads,
		SubmittedAt:    p.now().UTC(),
	}
	created, err := p.submissions.Create(ctx, submission)
	if err != nil {
		p.rollback(ctx, stored)
		return nil, failed(err, "Failed to save submission")
	}

	p.logger.Info("forms.submission.accepted",
		"form_id", form.FormID,
		"submission_id", created.ID,
		"locale", input.Locale,
		"files", len(stored),
	)
	return created, nil
}

func (p *Pipeline) admit(ctx context.Context, key string) error {
	if p.limiter == nil {
		return nil
	}
	if key == "" {
		key = ratelimit.UnknownClient
	}
	decision, err := p.limiter.Allow(ctx, key)
	if err != nil {
		p.logger.Warn("forms.ratelimit.unavailable", "client", key, "error", err)
		return nil
	}
	if !decision.Allowed {
		p.logger.Info("forms.submission.rate_limited", "client", key)
		return ratelimit.Error(decision)
	}
	if key == ratelimit.UnknownClient {
		p.logger.Debug("forms.ratelimit.unknown_client")
	}
	return nil
}

// Parse decodes a multipart or JSON body into an Input. Anything that is not
// multipart is read as JSON.
func (p *Pipeline) Parse(req Request) (Input, error) {
	locale := p.locales.Default()
	if req.Locale != "" {
		resolved, err := p.locales.Resolve(req.Locale)
		if err != nil {
			return Input{}, badRequest(fmt.Sprintf("Unsupported locale %q", req.Locale))
		}
		locale = resolved
	}
	if req.Body == nil {
		return Input{}, badRequest("Form ID and submission data are required")
	}

	mediaType, params, _ := mime.ParseMediaType(req.ContentType)
	var (
		input Input
		err   error
	)
	if mediaType == multipartContent {
		input, err = parseMultipart(req.Body, params["boundary"])
	} else {
		input, err = parseJSON(req.Body)
	}
	if err != nil {
		return Input{}, err
	}
	input.Locale = locale
	return input, nil
}

func parseMultipart(body io.Reader, boundary string) (Input, error) {
	if boundary == "" {
		return Input{}, badRequest("Malformed multipart request")
	}
	form, err := multipart.NewReader(body, boundary).ReadForm(multipartMemory)
	if err != nil {
		return Input{}, badRequest("Malformed multipart request")
	}
	defer form.RemoveAll()

	rawID := ""
	if ids := form.Value[formField]; len(ids) > 0 {
		rawID = ids[len(ids)-1]
	}
	if strings.TrimSpace(rawID) == "" {
		return Input{}, badRequest("Form ID is required")
	}
	formID, err := parseFormID(rawID)
	if err != nil {
		return Input{}, err
	}

	input := Input{FormID: formID, Files: map[string][]File{}}
	for _, name := range sortedKeys(form.Value) {
		if name == formField {
			continue
		}
		values := form.Value[name]
		input.Values = append(input.Values, FieldValue{Field: name, Value: values[len(values)-1]})
	}
	for _, name := range sortedKeys(form.File) {
		for _, header := range form.File[name] {
			file, err := readFile(header)
			if err != nil {
				return Input{}, badRequest(fmt.Sprintf("Could not read file %q", header.Filename))
			}
			input.Files[name] = append(input.Files[name], file)
		}
	}
	return input, nil
}

func readFile(header *multipart.FileHeader) (File, error) {
	src, err := header.Open()
	if err != nil {
		return File{}, err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return File{}, err
	}
	return File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

type jsonPayload struct {
	Form           any `json:"form"`
	SubmissionData any `json:"submissionData"`
}

func parseJSON(body io.Reader) (Input, error) {
	decoder := json.NewDecoder(body)
	decoder.UseNumber()
	var payload jsonPayload
	if err := decoder.Decode(&payload); err != nil {
		return Input{}, badRequest("Malformed JSON body")
	}
	if payload.Form == nil || payload.SubmissionData == nil {
		return Input{}, badRequest("Form ID and submission data are required")
	}

	rawID, ok := payload.Form.(string)
	if !ok {
		return Input{}, badRequest("Invalid form ID")
	}
	formID, err := parseFormID(rawID)
	if err != nil {
		return Input{}, err
	}

	items, ok := payload.SubmissionData.([]any)
	if !ok {
		return Input{}, rejected("Submission data must be an array")
	}
	input := Input{FormID: formID, Values: make([]FieldValue, 0, len(items))}
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return Input{}, rejected("Each submission item must have a valid field name")
		}
		name, _ := entry["field"].(string)
		input.Values = append(input.Values, FieldValue{Field: name, Value: entry["value"]})
	}
	return input, nil
}

func parseFormID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, badRequest("Invalid form ID")
	}
	return id, nil
}

func (p *Pipeline) validateFiles(schema map[string]Field, files map[string][]File) error {
	for _, name := range sortedKeys(files) {
		field, ok := schema[name].(FileField)
		if !ok {
			return rejected("Field %q is not part of this form", name)
		}
		group := files[name]
		if len(group) > field.MaxFiles {
			return rejected("You can upload at most %d %s for %q. You selected %d.",
				field.MaxFiles, plural(field.MaxFiles, "file", "files"), name, len(group))
		}

		limit := field.MaxBytes()
		var total int64
		for _, file := range group {
			total += file.Size()
		}
		if total > limit {
			return rejected("The total size of the files for %q is too large. Maximum total size is %dMB.", name, field.MaxMB)
		}

		for _, file := range group {
			if file.Size() == 0 {
				return rejected("File %q is empty.", file.Filename)
			}
			if file.Size() > limit {
				return rejected("File %q is too large. Maximum is %dMB per file.", file.Filename, field.MaxMB)
			}
			if !allowedType(file.ContentType) {
				return rejected("File type %q is not allowed.", file.ContentType)
			}
			if p.sniff && !allowedContent(file.Data) {
				return rejected("File %q does not contain an allowed file type.", file.Filename)
			}
		}
	}
	return nil
}

func allowedType(contentType string) bool {
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return slices.Contains(AllowedFileTypes, base)
}

func allowedContent(data []byte) bool {
	for detected := mimetype.Detect(data); detected != nil; detected = detected.Parent() {
		for _, allowed := range AllowedFileTypes {
			if detected.Is(allowed) {
				return true
			}
		}
	}
	return false
}

func (p *Pipeline) sanitize(values []FieldValue) []FieldValue {
	out := make([]FieldValue, 0, len(values))
	for _, item := range values {
		item.Field = sanitizeString(item.Field)
		if text, ok := item.Value.(string); ok {
			if p.policy != nil {
				text = p.policy.Sanitize(text)
			}
			item.Value = sanitizeString(text)
		}
		out = append(out, item)
	}
	return out
}

// sanitizeString strips NUL bytes, trims and truncates to MaxValueLength
// characters.
func sanitizeString(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\x00", ""))
	if utf8.RuneCountInString(value) <= MaxValueLength {
		return value
	}
	runes := []rune(value)
	return string(runes[:MaxValueLength])
}

func validateValues(schema map[string]Field, values []FieldValue, files map[string][]File) error {
	if len(values) > MaxFields {
		return rejected("Maximum %d fields allowed", MaxFields)
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return rejected("Submission data must be an array")
	}
	if len(encoded) > MaxPayloadBytes {
		return rejected("Submission data exceeds maximum size of %d bytes", MaxPayloadBytes)
	}

	submitted := make(map[string]string, len(values))
	for _, item := range values {
		if item.Field == "" {
			return rejected("Each submission item must have a valid field name")
		}
		text, ok := item.Value.(string)
		if !ok {
			return rejected("Each submission item must have a string value")
		}
		field, declared := schema[item.Field]
		if !declared {
			return rejected("Field %q is not part of this form", item.Field)
		}
		if err := validateValue(field, text); err != nil {
			return err
		}
		submitted[item.Field] = text
	}

	for _, name := range sortedKeys(schema) {
		field := schema[name]
		if !field.IsRequired() {
			continue
		}
		if _, ok := field.(FileField); ok {
			if len(files[name]) == 0 {
				return rejected("Required field %q is missing or empty", name)
			}
			continue
		}
		if strings.TrimSpace(submitted[name]) == "" {
			return rejected("Required field %q is missing or empty", name)
		}
	}
	return nil
}

// withoutBlankFileValues drops blank text parts sent for file fields. Browsers
// submit an empty file input as a part without a filename.
func withoutBlankFileValues(schema map[string]Field, values []FieldValue) []FieldValue {
	return slices.DeleteFunc(values, func(item FieldValue) bool {
		if _, ok := schema[item.Field].(FileField); !ok {
			return false
		}
		text, ok := item.Value.(string)
		return ok && strings.TrimSpace(text) == ""
	})
}

func validateValue(field Field, value string) error {
	name := field.FieldName()
	blank := strings.TrimSpace(value) == ""
	if field.IsRequired() && blank {
		return rejected("Required field %q is missing or empty", name)
	}
	switch f := field.(type) {
	case FileField:
		return rejected("Field %q only accepts file uploads", name)
	case SelectField:
		if blank || len(f.Options) == 0 {
			return nil
		}
		choices := []string{value}
		if f.Multi {
			choices = strings.Split(value, ",")
		}
		for _, choice := range choices {
			if !slices.Contains(f.Options, strings.TrimSpace(choice)) {
				return rejected("Field %q has an invalid option", name)
			}
		}
	case RadioField:
		if !blank && len(f.Options) > 0 && !slices.Contains(f.Options, value) {
			return rejected("Field %q has an invalid option", name)
		}
	}
	return nil
}

func (p *Pipeline) storeFiles(ctx context.Context, files map[string][]File) ([]*media.Media, []Upload, []FieldValue, error) {
	if len(files) == 0 {
		return nil, nil, nil, nil
	}
	if p.media == nil {
		return nil, nil, nil, failed(media.ErrBackendMissing, "File uploads are not available")
	}

	var (
		stored  []*media.Media
		uploads []Upload
		values  []FieldValue
	)
	for _, name := range sortedKeys(files) {
		upload := Upload{Field: name}
		ids := make([]string, 0, len(files[name]))
		for _, file := range files[name] {
			record, err := p.media.Put(ctx, media.Object{
				Field:       name,
				Filename:    file.Filename,
				ContentType: file.ContentType,
				Data:        file.Data,
			})
			if err != nil {
				p.rollback(ctx, stored)
				return nil, nil, nil, failed(err, "Failed to upload file %q", file.Filename)
			}
			stored = append(stored, record)
			upload.Files = append(upload.Files, record.ID)
			ids = append(ids, record.ID.String())
		}
		uploads = append(uploads, upload)
		values = append(values, FieldValue{Field: name, Value: FileValuePrefix + strings.Join(ids, ",")})
	}
	return stored, uploads, values, nil
}

func (p *Pipeline) rollback(ctx context.Context, stored []*media.Media) {
	cleanup := context.WithoutCancel(ctx)
	for _, record := range stored {
		if err := p.media.Delete(cleanup, record.ID); err != nil && !errors.Is(err, media.ErrNotFound) {
			p.logger.Error("forms.media.rollback_failed", "media_id", record.ID, "error", err)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
