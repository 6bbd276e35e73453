package httpd

// Header 有序的头部集合，名称保持原始大小写，不支持多值。
// 值拷贝会共享底层存储，使用后不要拷贝，需要独立副本时用 Clone。
type Header struct {
	keys   []string
	values map[string]string
}

// Set 设置键值对，已存在的键保持原来的位置
func (h *Header) Set(key, value string) {
	if h.values == nil {
		h.values = make(map[string]string)
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Get 获取头部数据
func (h *Header) Get(key string) string {
	return h.values[key]
}

// Lookup 获取头部数据并报告是否存在
func (h *Header) Lookup(key string) (string, bool) {
	v, ok := h.values[key]
	return v, ok
}

// Del 删除指定键值对
func (h *Header) Del(key string) {
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	for i, k := range h.keys {
		if k == key {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

// Clone 返回不共享存储的副本
func (h *Header) Clone() Header {
	var c Header
	h.Each(c.Set)
	return c
}

// Len 头部数量
func (h *Header) Len() int {
	return len(h.keys)
}

// Keys 按插入顺序返回所有名称
func (h *Header) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Each 按插入顺序遍历
func (h *Header) Each(fn func(key, value string)) {
	for _, k := range h.keys {
		fn(k, h.values[k])
	}
}
