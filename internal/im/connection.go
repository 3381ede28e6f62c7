package im

import "fmt"

// ConnectionService manages undirected links between images.
type ConnectionService struct {
	binding
	logger Logger
}

// NewConnectionService creates an unbound ConnectionService.
func NewConnectionService(logger Logger) *ConnectionService {
	return &ConnectionService{logger: logger}
}

// Canonical orders a pair so the smaller id comes first.
func Canonical(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Create links two distinct images. Either argument order yields the same stored row.
func (s *ConnectionService) Create(imageAID, imageBID int64) (*Connection, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	if imageAID == imageBID {
		return nil, ErrSelfConnection
	}

	a, b := Canonical(imageAID, imageBID)

	existing, err := db.FindConnection(a, b)
	if err != nil {
		s.logger.Error("failed to check connection", "image_a_id", a, "image_b_id", b, "error", err)
		return nil, fmt.Errorf("checking connection: %w", err)
	}
	if existing != nil {
		return nil, ErrConnectionExists
	}

	conn, err := db.CreateConnection(a, b)
	if err != nil {
		s.logger.Error("failed to create connection", "image_a_id", a, "image_b_id", b, "error", err)
		return nil, fmt.Errorf("creating connection: %w", err)
	}
	s.logger.Info("connection created", "id", conn.ID, "image_a_id", a, "image_b_id", b)
	return conn, nil
}

// Remove deletes the link between two images, in either argument order.
func (s *ConnectionService) Remove(imageAID, imageBID int64) error {
	db, err := s.store()
	if err != nil {
		return err
	}
	a, b := Canonical(imageAID, imageBID)
	if err := db.DeleteConnection(a, b); err != nil {
		s.logger.Error("failed to remove connection", "image_a_id", a, "image_b_id", b, "error", err)
		return fmt.Errorf("removing connection: %w", err)
	}
	s.logger.Info("connection removed", "image_a_id", a, "image_b_id", b)
	return nil
}

// ExistsBetween reports whether the two images are linked, in either order.
func (s *ConnectionService) ExistsBetween(imageAID, imageBID int64) (bool, error) {
	db, err := s.store()
	if err != nil {
		return false, err
	}
	a, b := Canonical(imageAID, imageBID)
	conn, err := db.FindConnection(a, b)
	if err != nil {
		return false, fmt.Errorf("checking connection: %w", err)
	}
	return conn != nil, nil
}

// ForImage returns every link touching the image with the other endpoint attached, newest first.
func (s *ConnectionService) ForImage(imageID int64) ([]*ImageConnection, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	conns, err := db.ListConnectionsForImage(imageID)
	if err != nil {
		s.logger.Error("failed to get connections for image", "image_id", imageID, "error", err)
		return nil, fmt.Errorf("getting connections for image: %w", err)
	}
	return conns, nil
}

// All returns the raw connection rows.
func (s *ConnectionService) All() ([]*Connection, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	conns, err := db.ListConnections()
	if err != nil {
		s.logger.Error("failed to list connections", "error", err)
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	return conns, nil
}

// Stats counts connections and the distinct images that take part in one.
func (s *ConnectionService) Stats() (*ConnectionStats, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	stats, err := db.ConnectionStats()
	if err != nil {
		s.logger.Error("failed to get connection stats", "error", err)
		return nil, fmt.Errorf("getting connection stats: %w", err)
	}
	return stats, nil
}

// GraphData projects every image to a node and every connection to an edge.
func (s *ConnectionService) GraphData() (*GraphData, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}

	images, err := db.ListImages()
	if err != nil {
		s.logger.Error("failed to list images for graph", "error", err)
		return nil, fmt.Errorf("listing images: %w", err)
	}
	conns, err := db.ListConnections()
	if err != nil {
		s.logger.Error("failed to list connections for graph", "error", err)
		return nil, fmt.Errorf("listing connections: %w", err)
	}

	graph := &GraphData{
		Nodes: make([]GraphNode, 0, len(images)),
		Edges: make([]GraphEdge, 0, len(conns)),
	}
	for _, img := range images {
		graph.Nodes = append(graph.Nodes, GraphNode{
			ID:        img.ID,
			Name:      img.Name,
			Path:      img.RelativePath,
			Extension: img.Extension,
			Size:      img.FileSize,
		})
	}
	for _, c := range conns {
		graph.Edges = append(graph.Edges, GraphEdge{
			Source:    c.ImageAID,
			Target:    c.ImageBID,
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
		})
	}
	return graph, nil
}
