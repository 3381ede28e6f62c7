package im

import (
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-playground/validator/v10"
)

// TagInput is the validated shape of a tag name/color pair.
type TagInput struct {
	Name  string `validate:"required,max=64"`
	Color string `validate:"omitempty,hexcolor"`
}

// TagService manages tags and their association with images.
type TagService struct {
	binding
	validate *validator.Validate
	logger   Logger
}

// NewTagService creates an unbound TagService.
func NewTagService(logger Logger) *TagService {
	return &TagService{
		validate: validator.New(),
		logger:   logger,
	}
}

// Create inserts a tag. Case-insensitive uniqueness is the caller's job (see NameExists);
// the store only rejects exact duplicates.
func (s *TagService) Create(name, color string) (*Tag, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}

	input := TagInput{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color)}
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}

	tag, err := db.CreateTag(input.Name, input.Color)
	if err != nil {
		s.logger.Error("failed to create tag", "name", input.Name, "error", err)
		return nil, fmt.Errorf("creating tag: %w", err)
	}
	s.logger.Info("tag created", "id", tag.ID, "name", tag.Name)
	return tag, nil
}

// NameExists reports whether another tag already uses name, ignoring case.
// excludeID lets a rename skip the tag being renamed; pass 0 to exclude nothing.
func (s *TagService) NameExists(name string, excludeID int64) (bool, error) {
	db, err := s.store()
	if err != nil {
		return false, err
	}
	exists, err := db.TagNameExists(strings.TrimSpace(name), excludeID)
	if err != nil {
		s.logger.Error("failed to check tag name", "name", name, "error", err)
		return false, fmt.Errorf("checking tag name: %w", err)
	}
	return exists, nil
}

// Update writes only the supplied fields. An empty update is a no-op.
func (s *TagService) Update(id int64, update TagUpdate) error {
	db, err := s.store()
	if err != nil {
		return err
	}
	if update.IsEmpty() {
		return nil
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := s.validateVar("name", name, "required,max=64"); err != nil {
			return err
		}
		update.Name = &name
	}
	if update.Color != nil {
		color := strings.TrimSpace(*update.Color)
		if err := s.validateVar("color", color, "omitempty,hexcolor"); err != nil {
			return err
		}
		update.Color = &color
	}

	if err := db.UpdateTag(id, update); err != nil {
		s.logger.Error("failed to update tag", "id", id, "error", err)
		return fmt.Errorf("updating tag: %w", err)
	}
	s.logger.Info("tag updated", "id", id)
	return nil
}

// Delete removes the tag and all of its image associations.
func (s *TagService) Delete(id int64) error {
	db, err := s.store()
	if err != nil {
		return err
	}
	if err := db.DeleteTag(id); err != nil {
		s.logger.Error("failed to delete tag", "id", id, "error", err)
		return fmt.Errorf("deleting tag: %w", err)
	}
	s.logger.Info("tag deleted", "id", id)
	return nil
}

// Get returns the tag with the given id, or nil.
func (s *TagService) Get(id int64) (*Tag, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	tag, err := db.FindTagByID(id)
	if err != nil {
		return nil, fmt.Errorf("finding tag: %w", err)
	}
	return tag, nil
}

// All returns every tag, name-ordered.
func (s *TagService) All() ([]*Tag, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	tags, err := db.ListTags()
	if err != nil {
		s.logger.Error("failed to list tags", "error", err)
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// AllWithImageCount returns every tag with the number of images carrying it.
func (s *TagService) AllWithImageCount() ([]*TagWithImageCount, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	tags, err := db.ListTagsWithImageCount()
	if err != nil {
		s.logger.Error("failed to list tags with image count", "error", err)
		return nil, fmt.Errorf("listing tags with image count: %w", err)
	}
	return tags, nil
}

// Search returns tags whose name contains query, name-ordered.
func (s *TagService) Search(query string) ([]*Tag, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	tags, err := db.SearchTags(query)
	if err != nil {
		s.logger.Error("failed to search tags", "query", query, "error", err)
		return nil, fmt.Errorf("searching tags: %w", err)
	}
	return tags, nil
}

// AddToImage associates the tag with the image. Adding an existing pair is a no-op.
func (s *TagService) AddToImage(imageID, tagID int64) error {
	db, err := s.store()
	if err != nil {
		return err
	}
	if err := db.AddTagToImage(imageID, tagID); err != nil {
		s.logger.Error("failed to add tag to image", "image_id", imageID, "tag_id", tagID, "error", err)
		return fmt.Errorf("adding tag to image: %w", err)
	}
	s.logger.Debug("tag added to image", "image_id", imageID, "tag_id", tagID)
	return nil
}

// RemoveFromImage drops the association between the tag and the image.
func (s *TagService) RemoveFromImage(imageID, tagID int64) error {
	db, err := s.store()
	if err != nil {
		return err
	}
	if err := db.RemoveTagFromImage(imageID, tagID); err != nil {
		s.logger.Error("failed to remove tag from image", "image_id", imageID, "tag_id", tagID, "error", err)
		return fmt.Errorf("removing tag from image: %w", err)
	}
	s.logger.Debug("tag removed from image", "image_id", imageID, "tag_id", tagID)
	return nil
}

// ForImage returns the tags of one image, name-ordered.
func (s *TagService) ForImage(imageID int64) ([]*Tag, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	tags, err := db.ListTagsForImage(imageID)
	if err != nil {
		s.logger.Error("failed to get tags for image", "image_id", imageID, "error", err)
		return nil, fmt.Errorf("getting tags for image: %w", err)
	}
	return tags, nil
}

// ImagesWithTags returns every image with its tags attached.
func (s *TagService) ImagesWithTags() ([]*ImageWithTags, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	images, err := db.ListImages()
	if err != nil {
		s.logger.Error("failed to list images", "error", err)
		return nil, fmt.Errorf("listing images: %w", err)
	}
	return s.attachTags(db, images)
}

// ImagesByTagsAll returns the images carrying every tag in tagIDs.
// An empty tagIDs means no filter.
func (s *TagService) ImagesByTagsAll(tagIDs []int64) ([]*ImageWithTags, error) {
	return s.filter(tagIDs, true)
}

// ImagesByTagsAny returns the images carrying at least one tag in tagIDs.
// An empty tagIDs means no filter.
func (s *TagService) ImagesByTagsAny(tagIDs []int64) ([]*ImageWithTags, error) {
	return s.filter(tagIDs, false)
}

func (s *TagService) filter(tagIDs []int64, all bool) ([]*ImageWithTags, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}

	ids := distinctIDs(tagIDs)
	if len(ids) == 0 {
		return s.ImagesWithTags()
	}

	var images []*Image
	if all {
		images, err = db.ListImagesByTagsAll(ids)
	} else {
		images, err = db.ListImagesByTagsAny(ids)
	}
	if err != nil {
		s.logger.Error("failed to filter images by tags", "tag_ids", ids, "all", all, "error", err)
		return nil, fmt.Errorf("filtering images by tags: %w", err)
	}
	return s.attachTags(db, images)
}

// attachTags does one tag lookup per image.
func (s *TagService) attachTags(db WorkspaceDatabase, images []*Image) ([]*ImageWithTags, error) {
	result := make([]*ImageWithTags, 0, len(images))
	for _, img := range images {
		tags, err := db.ListTagsForImage(img.ID)
		if err != nil {
			s.logger.Error("failed to get tags for image", "image_id", img.ID, "error", err)
			return nil, fmt.Errorf("getting tags for image %d: %w", img.ID, err)
		}
		result = append(result, &ImageWithTags{Image: *img, Tags: tags})
	}
	return result, nil
}

func (s *TagService) validateStruct(input TagInput) error {
	if err := s.validate.Struct(input); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func (s *TagService) validateVar(field, value, rules string) error {
	if err := s.validate.Var(value, rules); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return validationError("tag %s %s", field, friendlyRule(fieldErrs[0]))
		}
		return validationError("tag %s: %v", field, err)
	}
	return nil
}

// formatValidationError converts validator errors into an ErrValidation-wrapping error.
func formatValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validationError("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("tag %s %s", strings.ToLower(fe.Field()), friendlyRule(fe)))
	}
	return validationError("%s", strings.Join(msgs, "; "))
}

func friendlyRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "hexcolor":
		return "must be a hex color such as #ff8800"
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}

// distinctIDs drops duplicates while keeping first-seen order.
func distinctIDs(ids []int64) []int64 {
	seen := mapset.NewThreadUnsafeSetWithSize[int64](len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen.Add(id) {
			out = append(out, id)
		}
	}
	return out
}
