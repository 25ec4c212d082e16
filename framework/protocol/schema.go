package protocol

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Schema 由服务端下发的 protobufjs JSON 定义（liqi.json）构建出的描述符集合
type Schema struct {
	files   *protoregistry.Files
	methods map[string]Method
}

// Method 服务方法，Name 形如 lq.Lobby.fetchGameRecord
type Method struct {
	Name     string
	Request  protoreflect.MessageDescriptor
	Response protoreflect.MessageDescriptor
}

// protobufjs 的 JSON 节点，同一个结构同时表示命名空间、消息、枚举和服务
type pbNode struct {
	Nested  map[string]*pbNode   `json:"nested"`
	Fields  map[string]*pbField  `json:"fields"`
	Values  map[string]int32     `json:"values"`
	Methods map[string]*pbMethod `json:"methods"`
}

type pbField struct {
	Type    string `json:"type"`
	ID      int32  `json:"id"`
	Rule    string `json:"rule"`
	KeyType string `json:"keyType"`
}

type pbMethod struct {
	RequestType  string `json:"requestType"`
	ResponseType string `json:"responseType"`
}

func (n *pbNode) isMessage() bool { return n.Fields != nil }
func (n *pbNode) isEnum() bool    { return n.Values != nil }
func (n *pbNode) isService() bool { return n.Methods != nil }

var scalarKinds = map[string]descriptorpb.FieldDescriptorProto_Type{
	"double":   descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	"float":    descriptorpb.FieldDescriptorProto_TYPE_FLOAT,
	"int32":    descriptorpb.FieldDescriptorProto_TYPE_INT32,
	"int64":    descriptorpb.FieldDescriptorProto_TYPE_INT64,
	"uint32":   descriptorpb.FieldDescriptorProto_TYPE_UINT32,
	"uint64":   descriptorpb.FieldDescriptorProto_TYPE_UINT64,
	"sint32":   descriptorpb.FieldDescriptorProto_TYPE_SINT32,
	"sint64":   descriptorpb.FieldDescriptorProto_TYPE_SINT64,
	"fixed32":  descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
	"fixed64":  descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
	"sfixed32": descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
	"sfixed64": descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
	"bool":     descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	"string":   descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"bytes":    descriptorpb.FieldDescriptorProto_TYPE_BYTES,
}

type schemaBuilder struct {
	// 全名（不带前导点） -> 是否为消息（否则为枚举）
	types   map[string]bool
	files   map[string]*descriptorpb.FileDescriptorProto
	deps    map[string]map[string]bool
	methods map[string]pbMethodRef
}

type pbMethodRef struct {
	request, response string
}

// LoadSchema 解析 protobufjs JSON 定义
func LoadSchema(raw []byte) (*Schema, error) {
	var root pbNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("解析 schema JSON 失败: %w", err)
	}

	b := &schemaBuilder{
		types:   make(map[string]bool),
		files:   make(map[string]*descriptorpb.FileDescriptorProto),
		deps:    make(map[string]map[string]bool),
		methods: make(map[string]pbMethodRef),
	}
	b.collect("", &root)
	if err := b.buildNamespace("", &root); err != nil {
		return nil, err
	}

	set := &descriptorpb.FileDescriptorSet{}
	for _, pkg := range sortedKeys(b.files) {
		fd := b.files[pkg]
		for _, dep := range sortedKeys(b.deps[pkg]) {
			if dep != pkg {
				fd.Dependency = append(fd.Dependency, fileName(dep))
			}
		}
		set.File = append(set.File, fd)
	}

	files, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, fmt.Errorf("构建 schema 描述符失败: %w", err)
	}

	s := &Schema{files: files, methods: make(map[string]Method, len(b.methods))}
	for name, ref := range b.methods {
		req, err := s.message(ref.request)
		if err != nil {
			return nil, fmt.Errorf("方法 %s: %w", name, err)
		}
		res, err := s.message(ref.response)
		if err != nil {
			return nil, fmt.Errorf("方法 %s: %w", name, err)
		}
		s.methods[name] = Method{Name: name, Request: req, Response: res}
	}
	return s, nil
}

// collect 第一遍：登记所有类型全名，供相对名解析
func (b *schemaBuilder) collect(scope string, n *pbNode) {
	for _, name := range sortedKeys(n.Nested) {
		child := n.Nested[name]
		full := join(scope, name)
		switch {
		case child.isMessage():
			b.types[full] = true
		case child.isEnum():
			b.types[full] = false
		}
		b.collect(full, child)
	}
}

// buildNamespace 命名空间对应一个 proto package，每个 package 生成一个文件
func (b *schemaBuilder) buildNamespace(pkg string, n *pbNode) error {
	for _, name := range sortedKeys(n.Nested) {
		child := n.Nested[name]
		full := join(pkg, name)
		switch {
		case child.isMessage():
			msg, err := b.buildMessage(pkg, full, name, child)
			if err != nil {
				return err
			}
			fd := b.file(pkg)
			fd.MessageType = append(fd.MessageType, msg)
		case child.isEnum():
			// 枚举字段按 int32 编码，不生成枚举描述符
		case child.isService():
			for _, m := range sortedKeys(child.Methods) {
				def := child.Methods[m]
				req, ok := b.resolve(full, def.RequestType)
				if !ok || !b.types[req] {
					return fmt.Errorf("%w: %s.%s request %s", ErrUnknownType, full, m, def.RequestType)
				}
				res, ok := b.resolve(full, def.ResponseType)
				if !ok || !b.types[res] {
					return fmt.Errorf("%w: %s.%s response %s", ErrUnknownType, full, m, def.ResponseType)
				}
				b.methods[join(full, m)] = pbMethodRef{request: req, response: res}
			}
		default:
			if err := b.buildNamespace(full, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *schemaBuilder) file(pkg string) *descriptorpb.FileDescriptorProto {
	fd, ok := b.files[pkg]
	if !ok {
		fd = &descriptorpb.FileDescriptorProto{
			Name:   proto.String(fileName(pkg)),
			Syntax: proto.String("proto3"),
		}
		if pkg != "" {
			fd.Package = proto.String(pkg)
		}
		b.files[pkg] = fd
	}
	return fd
}

func (b *schemaBuilder) buildMessage(pkg, full, name string, n *pbNode) (*descriptorpb.DescriptorProto, error) {
	msg := &descriptorpb.DescriptorProto{Name: proto.String(name)}

	fieldNames := sortedKeys(n.Fields)
	sort.SliceStable(fieldNames, func(i, j int) bool {
		return n.Fields[fieldNames[i]].ID < n.Fields[fieldNames[j]].ID
	})
	for _, fname := range fieldNames {
		f := n.Fields[fname]
		field := &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(fname),
			Number: proto.Int32(f.ID),
			Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		}
		if f.KeyType != "" {
			entry, err := b.mapEntry(pkg, full, fname, f)
			if err != nil {
				return nil, err
			}
			msg.NestedType = append(msg.NestedType, entry)
			field.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
			field.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
			field.TypeName = proto.String("." + join(full, entry.GetName()))
		} else {
			if err := b.setFieldType(pkg, full, field, f.Type); err != nil {
				return nil, err
			}
			if f.Rule == "repeated" {
				field.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
			}
		}
		msg.Field = append(msg.Field, field)
	}

	for _, cname := range sortedKeys(n.Nested) {
		child := n.Nested[cname]
		if child.isMessage() {
			nested, err := b.buildMessage(pkg, join(full, cname), cname, child)
			if err != nil {
				return nil, err
			}
			msg.NestedType = append(msg.NestedType, nested)
		}
	}
	return msg, nil
}

func (b *schemaBuilder) mapEntry(pkg, scope, fname string, f *pbField) (*descriptorpb.DescriptorProto, error) {
	key := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String("key"),
		Number: proto.Int32(1),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
	}
	if err := b.setFieldType(pkg, scope, key, f.KeyType); err != nil {
		return nil, err
	}
	value := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String("value"),
		Number: proto.Int32(2),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
	}
	if err := b.setFieldType(pkg, scope, value, f.Type); err != nil {
		return nil, err
	}
	return &descriptorpb.DescriptorProto{
		Name:    proto.String(mapEntryName(fname)),
		Field:   []*descriptorpb.FieldDescriptorProto{key, value},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	}, nil
}

func (b *schemaBuilder) setFieldType(pkg, scope string, field *descriptorpb.FieldDescriptorProto, typ string) error {
	if kind, ok := scalarKinds[typ]; ok {
		field.Type = kind.Enum()
		return nil
	}
	full, ok := b.resolve(scope, typ)
	if !ok {
		return fmt.Errorf("%w: %s.%s 引用了 %s", ErrUnknownType, scope, field.GetName(), typ)
	}
	if !b.types[full] {
		// 枚举在线上就是 varint，按 int32 处理可以避开同包枚举值重名的冲突
		field.Type = descriptorpb.FieldDescriptorProto_TYPE_INT32.Enum()
		return nil
	}
	field.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
	field.TypeName = proto.String("." + full)

	target := packageOf(full, b.types)
	if b.deps[pkg] == nil {
		b.deps[pkg] = make(map[string]bool)
	}
	b.deps[pkg][target] = true
	return nil
}

// resolve 按 protobuf 作用域规则由内向外查找相对类型名
func (b *schemaBuilder) resolve(scope, ref string) (string, bool) {
	if strings.HasPrefix(ref, ".") {
		full := strings.TrimPrefix(ref, ".")
		_, ok := b.types[full]
		return full, ok
	}
	parts := strings.Split(scope, ".")
	if scope == "" {
		parts = nil
	}
	for i := len(parts); i >= 0; i-- {
		candidate := join(strings.Join(parts[:i], "."), ref)
		if _, ok := b.types[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

// packageOf 去掉类型全名中属于消息嵌套的部分
func packageOf(full string, types map[string]bool) string {
	parts := strings.Split(full, ".")
	for i := 1; i <= len(parts); i++ {
		if _, ok := types[strings.Join(parts[:i], ".")]; ok {
			return strings.Join(parts[:i-1], ".")
		}
	}
	return ""
}

func mapEntryName(s string) string {
	var b strings.Builder
	upperNext := true
	for _, c := range s {
		switch {
		case c == '_':
			upperNext = true
		case upperNext:
			b.WriteRune(unicode.ToUpper(c))
			upperNext = false
		default:
			b.WriteRune(c)
		}
	}
	b.WriteString("Entry")
	return b.String()
}

func fileName(pkg string) string {
	if pkg == "" {
		return "schema.proto"
	}
	return strings.ReplaceAll(pkg, ".", "/") + ".proto"
}

func join(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func trimName(name string) protoreflect.FullName {
	return protoreflect.FullName(strings.TrimPrefix(name, "."))
}

func (s *Schema) message(name string) (protoreflect.MessageDescriptor, error) {
	d, err := s.files.FindDescriptorByName(trimName(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%w: %s 不是消息类型", ErrUnknownType, name)
	}
	return md, nil
}

// Message 按全名查找消息描述符，名字可以带前导点（.lq.RecordNewRound）
func (s *Schema) Message(name string) (protoreflect.MessageDescriptor, error) {
	return s.message(name)
}

// Method 按全名查找服务方法（.lq.Lobby.fetchGameRecord）
func (s *Schema) Method(name string) (Method, error) {
	m, ok := s.methods[strings.TrimPrefix(name, ".")]
	if !ok {
		return Method{}, fmt.Errorf("%w: method %s", ErrUnknownType, name)
	}
	return m, nil
}
